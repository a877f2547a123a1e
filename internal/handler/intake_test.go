package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artcircle/waitlist/internal/model"
	"github.com/artcircle/waitlist/internal/service"
)

type stubIntake struct {
	allowErr   error
	result     *service.Result
	processErr error

	allowKeys []string
	processed []map[string]any
	malformed int
}

func (s *stubIntake) Allow(clientKey string) error {
	s.allowKeys = append(s.allowKeys, clientKey)
	return s.allowErr
}

func (s *stubIntake) Process(ctx context.Context, raw map[string]any) (*service.Result, error) {
	s.processed = append(s.processed, raw)
	return s.result, s.processErr
}

func (s *stubIntake) MalformedRequest() { s.malformed++ }

func newTestIntakeHandler(svc IntakeService, now time.Time) *IntakeHandler {
	h := NewIntakeHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return now }
	return h
}

func postJSON(h *IntakeHandler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Submit(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestIntakeHandler_Success(t *testing.T) {
	svc := &stubIntake{result: &service.Result{ID: "01HXYZ"}}
	h := newTestIntakeHandler(svc, time.Now())

	rec := postJSON(h, `{"name":"Jane","years_of_experience":5}`, map[string]string{
		"X-Forwarded-For": "203.0.113.7, 10.0.0.1",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, msgSubmitted, body["message"])
	assert.Equal(t, "01HXYZ", body["id"])

	assert.Equal(t, []string{"203.0.113.7"}, svc.allowKeys)
	require.Len(t, svc.processed, 1)
	assert.Equal(t, json.Number("5"), svc.processed[0][model.FieldYearsOfExperience])
}

func TestIntakeHandler_UnknownClientKey(t *testing.T) {
	svc := &stubIntake{result: &service.Result{ID: "x"}}
	h := newTestIntakeHandler(svc, time.Now())

	postJSON(h, `{}`, nil)
	assert.Equal(t, []string{"unknown"}, svc.allowKeys)
}

func TestIntakeHandler_RateLimited(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reset := now.Add(59*time.Minute + 30*time.Second)
	svc := &stubIntake{allowErr: &service.RateLimitError{ResetAt: reset}}
	h := newTestIntakeHandler(svc, now)

	rec := postJSON(h, `not even json`, nil)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3570", rec.Header().Get("Retry-After"))
	body := decodeBody(t, rec)
	assert.Equal(t, msgRateLimited, body["error"])
	assert.Equal(t, float64(reset.UnixMilli()), body["resetTime"])
	assert.Empty(t, svc.processed, "body must not be processed once rate limited")
	assert.Zero(t, svc.malformed)
}

func TestIntakeHandler_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"name":`},
		{"array", `[1,2,3]`},
		{"null", `null`},
		{"string", `"hello"`},
		{"empty", ``},
		{"trailing garbage", `{"name":"Jane"}garbage`},
		{"two objects", `{"name":"Jane"}{"name":"John"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubIntake{}
			h := newTestIntakeHandler(svc, time.Now())

			rec := postJSON(h, tt.body, nil)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]any{"error": msgInvalidBody}, decodeBody(t, rec))
			assert.Len(t, svc.allowKeys, 1, "malformed requests still consume a slot")
			assert.Empty(t, svc.processed)
			assert.Equal(t, 1, svc.malformed)
		})
	}
}

func TestIntakeHandler_TrailingWhitespaceAccepted(t *testing.T) {
	svc := &stubIntake{result: &service.Result{ID: "01HXYZ"}}
	h := newTestIntakeHandler(svc, time.Now())

	rec := postJSON(h, "{\"name\":\"Jane\"}\n\t ", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, svc.processed, 1)
	assert.Zero(t, svc.malformed)
}

func TestIntakeHandler_BodyTooLarge(t *testing.T) {
	svc := &stubIntake{}
	h := newTestIntakeHandler(svc, time.Now())

	payload := fmt.Sprintf(`{"name":%q}`, strings.Repeat("x", 1024))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rec, req.Body, 64)

	h.Submit(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, msgBodyTooLarge, decodeBody(t, rec)["error"])
}

func TestIntakeHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"validation", &service.ValidationError{Details: []string{"Name is required"}}, http.StatusBadRequest, msgValidationFailed},
		{"duplicate", service.ErrDuplicateEmail, http.StatusConflict, msgDuplicateEmail},
		{"persistence", fmt.Errorf("%w: %w", service.ErrPersistence, errors.New("timeout")), http.StatusInternalServerError, msgPersistenceFailed},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, msgUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubIntake{processErr: tt.err}
			h := newTestIntakeHandler(svc, time.Now())

			rec := postJSON(h, `{}`, nil)

			require.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.wantError, body["error"])
			if tt.name == "validation" {
				assert.Equal(t, []any{"Name is required"}, body["details"])
			} else {
				assert.NotContains(t, body, "details")
			}
			assert.NotContains(t, body, "resetTime")
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		reset time.Time
		want  int
	}{
		{now.Add(time.Hour), 3600},
		{now.Add(1500 * time.Millisecond), 2},
		{now, 1},
		{now.Add(-time.Minute), 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, retryAfterSeconds(tt.reset, now), "reset %s", tt.reset)
	}
}
