// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// noConsents disables required consent checks when set as REQUIRED_CONSENTS.
const noConsents = "none"

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development" validate:"oneof=development staging production test"`
	AppPort int    `env:"APP_PORT" envDefault:"8080" validate:"gte=1,lte=65535"`

	// Database (PostgreSQL)
	DatabaseURL      string `env:"DATABASE_URL,required"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"5" validate:"gte=1"`
	DatabaseMinConns int32  `env:"DATABASE_MIN_CONNS" envDefault:"1" validate:"gte=0,ltefield=DatabaseMaxConns"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn warning error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting (per instance, in memory)
	RateLimitMaxSubmissions int           `env:"RATE_LIMIT_MAX_SUBMISSIONS" envDefault:"3" validate:"gte=1"`
	RateLimitWindow         time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1h" validate:"gt=0"`
	RateLimitMaxKeys        int           `env:"RATE_LIMIT_MAX_KEYS" envDefault:"10000" validate:"gte=1"`
	RateLimitSweepInterval  time.Duration `env:"RATE_LIMIT_SWEEP_INTERVAL" envDefault:"5m" validate:"gt=0"`

	// Intake behavior
	// Comma-separated boolean fields that must be true, or "none".
	RequiredConsents string        `env:"REQUIRED_CONSENTS" envDefault:"data_processing_consent"`
	StoreTimeout     time.Duration `env:"STORE_TIMEOUT" envDefault:"5s" validate:"gt=0"`

	// Operator notification. NOTIFY_TO enables SES email,
	// NOTIFY_WEBHOOK_URL enables the signed webhook. Both may be set.
	NotifyEnabled       bool          `env:"NOTIFY_ENABLED" envDefault:"false"`
	NotifyTo            string        `env:"NOTIFY_TO" validate:"omitempty,email"`
	NotifyFrom          string        `env:"NOTIFY_FROM" validate:"required_with=NotifyTo,omitempty,email"`
	NotifyWebhookURL    string        `env:"NOTIFY_WEBHOOK_URL" validate:"omitempty,url"`
	NotifyWebhookSecret string        `env:"NOTIFY_WEBHOOK_SECRET" validate:"required_with=NotifyWebhookURL"`
	NotifyTimeout       time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s" validate:"gt=0"`
	AWSRegion           string        `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSAccessKeyID      string        `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey  string        `env:"AWS_SECRET_ACCESS_KEY"`

	// CORS configuration
	// Comma-separated list of allowed origins; "*" allows any origin.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Request body size limit in bytes (default 64KB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"65536" validate:"gt=0"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// GetRequiredConsents returns the consent fields that must be true.
// "none" yields an empty list.
func (c *Config) GetRequiredConsents() []string {
	if strings.EqualFold(strings.TrimSpace(c.RequiredConsents), noConsents) {
		return nil
	}
	return splitList(c.RequiredConsents)
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.NotifyEnabled && c.NotifyTo == "" && c.NotifyWebhookURL == "" {
		return errors.New("invalid config: NOTIFY_ENABLED requires NOTIFY_TO or NOTIFY_WEBHOOK_URL")
	}
	return nil
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
