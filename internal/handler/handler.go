// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Client-facing error messages.
const (
	msgNotFound          = "resource not found"
	msgMethodNotAllowed  = "method not allowed"
	msgInvalidBody       = "Invalid request body"
	msgBodyTooLarge      = "Request body too large"
	msgValidationFailed  = "Validation failed"
	msgDuplicateEmail    = "This email is already registered"
	msgRateLimited       = "Too many submissions. Please try again later."
	msgPersistenceFailed = "Failed to submit application"
	msgUnexpected        = "An unexpected error occurred"
	msgSubmitted         = "Application submitted successfully"
)

// Handler serves the fallback routes.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: msgNotFound})
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: msgMethodNotAllowed})
}

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
	// ResetTime is a Unix timestamp in milliseconds.
	ResetTime int64 `json:"resetTime,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Debug("failed to write response", "error", err)
	}
}
