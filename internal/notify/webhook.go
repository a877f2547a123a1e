package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/artcircle/waitlist/internal/logging"
	"github.com/artcircle/waitlist/internal/model"
)

// Webhook request headers.
const (
	HeaderSignature  = "X-Waitlist-Signature"
	HeaderTimestamp  = "X-Waitlist-Timestamp"
	HeaderDeliveryID = "X-Waitlist-Delivery-Id"
)

// EventSubmitted is the event type of every webhook payload.
const EventSubmitted = "artist_application.submitted"

var (
	// ErrInvalidScheme is returned when the webhook URL is not HTTPS.
	ErrInvalidScheme = errors.New("only HTTPS allowed")
	// ErrLocalhostBlocked is returned for loopback or private targets.
	ErrLocalhostBlocked = errors.New("local and private addresses not allowed")
	// ErrInvalidURL is returned when URL parsing fails.
	ErrInvalidURL = errors.New("invalid URL format")
	// ErrReplayWindowExceeded is returned when the timestamp is outside the replay window.
	ErrReplayWindowExceeded = errors.New("timestamp outside replay window")
	// ErrInvalidSignature is returned when signature verification fails.
	ErrInvalidSignature = errors.New("invalid signature")
)

// DefaultReplayWindow is the default tolerance for receivers verifying a delivery.
const DefaultReplayWindow = 5 * time.Minute

// blockedCIDRs contains private/internal IP ranges.
var blockedCIDRs = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"0.0.0.0/8",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
}

var blockedNetworks = func() []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(blockedCIDRs))
	for _, cidr := range blockedCIDRs {
		if _, n, err := net.ParseCIDR(cidr); err == nil {
			nets = append(nets, n)
		}
	}
	return nets
}()

// ValidateWebhookURL requires HTTPS and rejects localhost and private IP literals.
// Hostnames are not resolved here.
func ValidateWebhookURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ErrInvalidURL
	}
	if parsed.Scheme != "https" {
		return ErrInvalidScheme
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return ErrLocalhostBlocked
	}
	if ip := net.ParseIP(host); ip != nil {
		for _, n := range blockedNetworks {
			if n.Contains(ip) {
				return ErrLocalhostBlocked
			}
		}
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of "{timestamp}.{body}".
func Sign(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a delivery signature and rejects timestamps
// further than window from now.
func VerifySignature(secret, signature string, timestamp int64, body []byte, now time.Time, window time.Duration) error {
	skew := now.Unix() - timestamp
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(window.Seconds()) {
		return ErrReplayWindowExceeded
	}
	if !hmac.Equal([]byte(Sign(secret, timestamp, body)), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// WebhookConfig configures a WebhookNotifier.
type WebhookConfig struct {
	URL    string
	Secret string
	// AllowInsecure skips URL validation. Tests only.
	AllowInsecure bool
}

// WebhookNotifier posts a signed JSON summary of each submission.
// Each submission is attempted once.
type WebhookNotifier struct {
	url    string
	secret string
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewWebhookNotifier validates the target and builds a notifier.
func NewWebhookNotifier(cfg WebhookConfig, logger *slog.Logger) (*WebhookNotifier, error) {
	if cfg.URL == "" || cfg.Secret == "" {
		return nil, ErrNotConfigured
	}
	if !cfg.AllowInsecure {
		if err := ValidateWebhookURL(cfg.URL); err != nil {
			return nil, fmt.Errorf("webhook url: %w", err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &WebhookNotifier{
		url:    cfg.URL,
		secret: cfg.Secret,
		client: newWebhookClient(),
		logger: logger.With("component", "webhook_notifier"),
		now:    time.Now,
	}, nil
}

func newWebhookClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
		},
		// Redirects are not followed.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type webhookPayload struct {
	Event       string            `json:"event"`
	DeliveryID  string            `json:"delivery_id"`
	Application *model.Submission `json:"application"`
}

// Notify sends one signed POST. Any non-2xx status is an error.
func (n *WebhookNotifier) Notify(ctx context.Context, s *model.Submission) error {
	deliveryID := ulid.Make().String()
	body, err := json.Marshal(webhookPayload{
		Event:       EventSubmitted,
		DeliveryID:  deliveryID,
		Application: s,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	ts := n.now().Unix()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Waitlist-Webhook/1.0")
	req.Header.Set(HeaderSignature, Sign(n.secret, ts, body))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderDeliveryID, deliveryID)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}

	n.logger.Debug("webhook delivered",
		"delivery_id", deliveryID,
		"email", logging.RedactEmail(s.Email),
	)
	return nil
}
