package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artcircle/waitlist/internal/model"
	"github.com/artcircle/waitlist/migrations"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetWaitlistSchema drops and recreates every embedded migration, newest first on the way down.
func ResetWaitlistSchema(ctx context.Context, pool *pgxpool.Pool) error {
	all, err := migrations.Load()
	if err != nil {
		return err
	}

	for i := len(all) - 1; i >= 0; i-- {
		if _, err := pool.Exec(ctx, all[i].Down); err != nil {
			return fmt.Errorf("apply down migration %s: %w", all[i].Version, err)
		}
	}
	for _, m := range all {
		if _, err := pool.Exec(ctx, m.Up); err != nil {
			return fmt.Errorf("apply up migration %s: %w", m.Version, err)
		}
	}

	return nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestPayload returns a raw intake payload that passes validation.
func NewTestPayload(email string) map[string]any {
	return map[string]any{
		model.FieldName:                  "Jane Doe",
		model.FieldEmail:                 email,
		model.FieldInstagramHandle:       "@jane",
		model.FieldYearsOfExperience:     float64(5),
		model.FieldMinimumPrice:          "$200",
		model.FieldDataProcessingConsent: true,
	}
}

// NewTestSubmission creates a normalized submission with sensible defaults.
func NewTestSubmission(t testing.TB, email string) *model.Submission {
	t.Helper()
	s := model.NewSubmissionFromPayload(NewTestPayload(email))
	s.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	return s
}

// UniqueEmail generates a unique email address for tests.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}
