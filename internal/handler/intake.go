package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/artcircle/waitlist/internal/ratelimit"
	"github.com/artcircle/waitlist/internal/service"
)

// IntakeService is the orchestration the intake endpoint drives.
type IntakeService interface {
	Allow(clientKey string) error
	Process(ctx context.Context, raw map[string]any) (*service.Result, error)
	MalformedRequest()
}

// IntakeHandler handles artist waitlist submissions.
type IntakeHandler struct {
	svc     IntakeService
	keyFunc func(*http.Request) string
	logger  *slog.Logger
	now     func() time.Time
}

// NewIntakeHandler creates a new IntakeHandler keyed by ratelimit.KeyFromRequest.
func NewIntakeHandler(svc IntakeService, logger *slog.Logger) *IntakeHandler {
	return &IntakeHandler{
		svc:     svc,
		keyFunc: ratelimit.KeyFromRequest,
		logger:  logger.With("component", "intake_handler"),
		now:     time.Now,
	}
}

type submitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

// Submit accepts one application.
// The rate-limit slot is consumed before the body is read, so malformed
// requests count against the client too.
//
// POST /functions/v1/submit-artist-application
// POST /api/v1/applications
func (h *IntakeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Allow(h.keyFunc(r)); err != nil {
		h.writeError(w, r, err)
		return
	}

	raw, err := decodePayload(r)
	if err != nil {
		h.svc.MalformedRequest()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: msgBodyTooLarge})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidBody})
		return
	}

	result, err := h.svc.Process(r.Context(), raw)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{
		Success: true,
		Message: msgSubmitted,
		ID:      result.ID,
	})
}

var (
	errNotObject    = errors.New("request body is not a JSON object")
	errTrailingData = errors.New("request body has data after the JSON object")
)

// decodePayload reads exactly one JSON object, keeping numbers as json.Number.
func decodePayload(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errNotObject
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		return nil, errTrailingData
	}
	return raw, nil
}

func (h *IntakeHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rateErr *service.RateLimitError
	var validationErr *service.ValidationError

	switch {
	case errors.As(err, &rateErr):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rateErr.ResetAt, h.now())))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:     msgRateLimited,
			ResetTime: rateErr.ResetAt.UnixMilli(),
		})
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   msgValidationFailed,
			Details: validationErr.Details,
		})
	case errors.Is(err, service.ErrDuplicateEmail):
		writeJSON(w, http.StatusConflict, errorResponse{Error: msgDuplicateEmail})
	case errors.Is(err, service.ErrPersistence):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgPersistenceFailed})
	default:
		h.logger.Error("unexpected intake error",
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgUnexpected})
	}
}

// retryAfterSeconds rounds up and never returns less than one second.
func retryAfterSeconds(resetAt, now time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
