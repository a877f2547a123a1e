package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"

	"github.com/artcircle/waitlist/internal/model"
)

// Common errors for submission repository operations.
var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrEmailExists        = errors.New("email already exists")
)

// uniqueViolationCode is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolationCode = "23505"

const submissionColumns = `id, name, email, phone_number, instagram_handle, qualifications,
	years_of_experience, minimum_price, art_shows_participation,
	accepts_commissioned_work, hosts_workshops, marketing_consent,
	data_processing_consent, created_at`

// InsertSubmission writes a new submission. The ID and CreatedAt are assigned
// here when unset. A second submission with the same email returns ErrEmailExists.
func (r *Repository) InsertSubmission(ctx context.Context, s *model.Submission) error {
	if s.ID == "" {
		s.ID = ulid.Make().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO artists_waitlist (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.Name,
		s.Email,
		s.PhoneNumber,
		s.InstagramHandle,
		s.Qualifications,
		s.YearsOfExperience,
		s.MinimumPrice,
		s.ArtShowsParticipation,
		s.AcceptsCommissionedWork,
		s.HostsWorkshops,
		s.MarketingConsent,
		s.DataProcessingConsent,
		s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	return nil
}

// GetSubmissionByEmail retrieves a submission by email, ignoring case.
func (r *Repository) GetSubmissionByEmail(ctx context.Context, email string) (*model.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM artists_waitlist
		WHERE lower(email) = lower($1)
	`

	var s model.Submission
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&s.ID,
		&s.Name,
		&s.Email,
		&s.PhoneNumber,
		&s.InstagramHandle,
		&s.Qualifications,
		&s.YearsOfExperience,
		&s.MinimumPrice,
		&s.ArtShowsParticipation,
		&s.AcceptsCommissionedWork,
		&s.HostsWorkshops,
		&s.MarketingConsent,
		&s.DataProcessingConsent,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission by email: %w", err)
	}

	return &s, nil
}

// CountSubmissions returns the number of stored submissions.
func (r *Repository) CountSubmissions(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM artists_waitlist`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return n, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
