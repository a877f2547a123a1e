// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/artcircle/waitlist/internal/logging"
	"github.com/artcircle/waitlist/internal/metrics"
	"github.com/artcircle/waitlist/internal/model"
	"github.com/artcircle/waitlist/internal/notify"
	"github.com/artcircle/waitlist/internal/ratelimit"
	"github.com/artcircle/waitlist/internal/repository"
	"github.com/artcircle/waitlist/internal/validation"
)

const (
	defaultNotifyTimeout = 5 * time.Second
	defaultStoreTimeout  = 5 * time.Second
)

// IntakeConfig collects the behavior switches of the intake flow.
type IntakeConfig struct {
	EnableNotification bool
	// RequiredConsents lists boolean payload fields that must be true.
	RequiredConsents []string
	NotifyTimeout    time.Duration
	StoreTimeout     time.Duration
}

// DefaultIntakeConfig returns the production defaults.
func DefaultIntakeConfig() IntakeConfig {
	return IntakeConfig{
		EnableNotification: false,
		RequiredConsents:   []string{model.FieldDataProcessingConsent},
		NotifyTimeout:      defaultNotifyTimeout,
		StoreTimeout:       defaultStoreTimeout,
	}
}

// RateLimiter gates submissions per client key.
type RateLimiter interface {
	Check(key string) ratelimit.Decision
	Len() int
}

// Store persists accepted submissions.
type Store interface {
	InsertSubmission(ctx context.Context, s *model.Submission) error
}

// IntakeDeps are the collaborators of IntakeService.
type IntakeDeps struct {
	Limiter  RateLimiter
	Store    Store
	Notifier notify.Sink
	Metrics  metrics.Recorder
	Logger   *slog.Logger
}

// Result describes a persisted submission.
type Result struct {
	ID         string
	Submission *model.Submission
}

// IntakeService runs a raw payload through rate limiting, validation,
// notification and persistence.
type IntakeService struct {
	cfg       IntakeConfig
	limiter   RateLimiter
	validator *validation.Validator
	store     Store
	notifier  notify.Sink
	metrics   metrics.Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewIntakeService creates a new IntakeService.
func NewIntakeService(cfg IntakeConfig, deps IntakeDeps) (*IntakeService, error) {
	if deps.Limiter == nil {
		return nil, errors.New("intake: limiter is required")
	}
	if deps.Store == nil {
		return nil, errors.New("intake: store is required")
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = defaultNotifyTimeout
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Noop{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	v, err := validation.New(validation.WithRequiredConsents(cfg.RequiredConsents...))
	if err != nil {
		return nil, fmt.Errorf("intake: build validator: %w", err)
	}

	return &IntakeService{
		cfg:       cfg,
		limiter:   deps.Limiter,
		validator: v,
		store:     deps.Store,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		logger:    deps.Logger.With("component", "intake"),
		now:       time.Now,
	}, nil
}

// Allow consumes one rate-limit slot for clientKey.
// It returns a *RateLimitError when the client is over its limit.
func (s *IntakeService) Allow(clientKey string) error {
	decision := s.limiter.Check(clientKey)
	s.metrics.SetRateLimitKeys(s.limiter.Len())
	if !decision.Allowed {
		s.metrics.IncSubmission(metrics.OutcomeRateLimited)
		s.logger.Info("submission rate limited",
			"client_key", clientKey,
			"reset_at", decision.ResetAt,
		)
		return &RateLimitError{ResetAt: decision.ResetAt}
	}
	return nil
}

// Submit runs the full intake flow for one request.
func (s *IntakeService) Submit(ctx context.Context, clientKey string, raw map[string]any) (*Result, error) {
	if err := s.Allow(clientKey); err != nil {
		return nil, err
	}
	return s.Process(ctx, raw)
}

// Process validates, notifies and persists a payload that has already
// passed the rate-limit gate.
func (s *IntakeService) Process(ctx context.Context, raw map[string]any) (*Result, error) {
	result := s.validator.Validate(raw)
	if !result.Valid {
		s.metrics.IncSubmission(metrics.OutcomeInvalid)
		return nil, &ValidationError{Details: result.Errors}
	}

	sub := model.NewSubmissionFromPayload(raw)

	if s.cfg.EnableNotification {
		s.sendNotification(ctx, sub)
	} else {
		s.metrics.IncNotification(metrics.NotificationSkipped)
	}

	if err := s.persist(ctx, sub); err != nil {
		return nil, err
	}

	s.metrics.IncSubmission(metrics.OutcomeAccepted)
	s.logger.Info("submission accepted",
		"id", sub.ID,
		"email", logging.RedactEmail(sub.Email),
	)

	return &Result{ID: sub.ID, Submission: sub}, nil
}

// MalformedRequest records a request whose body could not be decoded.
func (s *IntakeService) MalformedRequest() {
	s.metrics.IncSubmission(metrics.OutcomeMalformed)
}

// sendNotification never fails the request.
func (s *IntakeService) sendNotification(ctx context.Context, sub *model.Submission) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.NotifyTimeout)
	defer cancel()

	if err := s.notifier.Notify(ctx, sub); err != nil {
		s.metrics.IncNotification(metrics.NotificationFailed)
		s.logger.Warn("notification failed",
			"email", logging.RedactEmail(sub.Email),
			"error", err,
		)
		return
	}
	s.metrics.IncNotification(metrics.NotificationSent)
}

func (s *IntakeService) persist(ctx context.Context, sub *model.Submission) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	start := s.now()
	err := s.store.InsertSubmission(ctx, sub)
	s.metrics.ObservePersistDuration(s.now().Sub(start))

	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			s.metrics.IncSubmission(metrics.OutcomeDuplicate)
			return ErrDuplicateEmail
		}
		s.metrics.IncSubmission(metrics.OutcomeFailed)
		s.logger.Error("failed to persist submission",
			"email", logging.RedactEmail(sub.Email),
			"error", err,
		)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}
