package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service errors.
var (
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrValidation     = errors.New("validation failed")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrPersistence    = errors.New("failed to persist submission")
)

// RateLimitError reports a denied submission and when the client may retry.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: resets at %s", ErrRateLimited, e.ResetAt.UTC().Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// ValidationError carries every rule the payload violated.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Details, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
