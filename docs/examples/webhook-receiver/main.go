// Webhook receiver example.
//
// A minimal receiver for waitlist application webhooks.
//
// Usage:
//
//	export WAITLIST_WEBHOOK_SECRET="whsec_your_secret_here"
//	go run ./docs/examples/webhook-receiver
//
// Then point NOTIFY_WEBHOOK_URL at https://your-host/webhook.
package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/artcircle/waitlist/internal/model"
	"github.com/artcircle/waitlist/internal/notify"
)

type delivery struct {
	Event       string           `json:"event"`
	DeliveryID  string           `json:"delivery_id"`
	Application model.Submission `json:"application"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	secret := os.Getenv("WAITLIST_WEBHOOK_SECRET")
	if secret == "" {
		logger.Error("WAITLIST_WEBHOOK_SECRET environment variable is required")
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", webhookHandler(secret, logger))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	logger.Info("starting webhook receiver", "addr", ":9000")
	srv := &http.Server{Addr: ":9000", Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func webhookHandler(secret string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		ts, err := strconv.ParseInt(r.Header.Get(notify.HeaderTimestamp), 10, 64)
		if err != nil {
			http.Error(w, "Missing timestamp", http.StatusUnauthorized)
			return
		}

		sig := r.Header.Get(notify.HeaderSignature)
		if err := notify.VerifySignature(secret, sig, ts, body, time.Now(), notify.DefaultReplayWindow); err != nil {
			logger.Warn("rejected delivery", "error", err)
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		var d delivery
		if err := json.Unmarshal(body, &d); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		logger.Info("received application",
			"event", d.Event,
			"delivery_id", d.DeliveryID,
			"name", d.Application.Name,
			"instagram", d.Application.InstagramHandle,
		)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "received"})
	}
}
