package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/artcircle/waitlist/internal/model"
)

// ErrNotConfigured is returned when no sender or recipient is set.
var ErrNotConfigured = errors.New("notification sender not configured")

// SESAPI is the subset of the SES v2 client used for sending.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig configures the SES client and addresses.
type SESConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	From      string
	To        string
}

// NewSESClient builds an SES v2 client. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain applies.
func NewSESClient(ctx context.Context, cfg SESConfig) (*sesv2.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return sesv2.NewFromConfig(awsCfg), nil
}

// SESNotifier emails a summary of each submission to a fixed operator address.
type SESNotifier struct {
	client SESAPI
	from   string
	to     string
	logger *slog.Logger
}

// NewSESNotifier creates an SESNotifier.
func NewSESNotifier(client SESAPI, from, to string, logger *slog.Logger) *SESNotifier {
	return &SESNotifier{
		client: client,
		from:   from,
		to:     to,
		logger: logger.With("component", "notify.ses"),
	}
}

// Notify sends one email. There is no retry.
func (n *SESNotifier) Notify(ctx context.Context, s *model.Submission) error {
	if n.client == nil || n.from == "" || n.to == "" {
		return ErrNotConfigured
	}

	msg := FormatSummary(s)

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination:      &types.Destination{ToAddresses: []string{n.to}},
		ReplyToAddresses: []string{s.Email},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	out, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}

	messageID := ""
	if out != nil && out.MessageId != nil {
		messageID = *out.MessageId
	}
	n.logger.Debug("notification sent", slog.String("message_id", messageID))

	return nil
}
