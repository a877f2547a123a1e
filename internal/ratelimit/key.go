package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownKey is used when a request carries no forwarded client address.
const UnknownKey = "unknown"

// KeyFromRequest derives the rate limit key from the first X-Forwarded-For entry.
func KeyFromRequest(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return UnknownKey
	}

	first, _, _ := strings.Cut(xff, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return UnknownKey
	}
	return first
}
