// Package middleware provides HTTP middleware for the waitlist API.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds CORS configuration options.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to read responses.
	// A single "*" allows any origin and is sent verbatim.
	AllowedOrigins []string

	// AllowedMethods is sent on preflight responses.
	AllowedMethods []string

	// AllowedHeaders is sent on every response.
	AllowedHeaders []string

	// MaxAge is the value for Access-Control-Max-Age header (in seconds).
	MaxAge int
}

// DefaultCORSConfig returns the public intake defaults: any origin and the
// headers browser clients of the hosted functions endpoint send.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"authorization", "x-client-info", "apikey", "content-type"},
		MaxAge:         86400, // 24 hours
	}
}

// CORS returns a middleware that adds CORS headers to every response,
// including errors, and answers OPTIONS preflight requests with 200 and an
// empty body.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	methodsStr := strings.Join(cfg.AllowedMethods, ", ")
	headersStr := strings.Join(cfg.AllowedHeaders, ", ")
	maxAgeStr := ""
	if cfg.MaxAge > 0 {
		maxAgeStr = strconv.Itoa(cfg.MaxAge)
	}

	wildcard := len(cfg.AllowedOrigins) == 0
	originMap := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			wildcard = true
		}
		originMap[strings.ToLower(origin)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()

			if wildcard {
				h.Set("Access-Control-Allow-Origin", "*")
			} else if origin := r.Header.Get("Origin"); origin != "" && isOriginAllowed(origin, originMap, cfg.AllowedOrigins) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Headers", headersStr)

			if r.Method == http.MethodOptions {
				if methodsStr != "" {
					h.Set("Access-Control-Allow-Methods", methodsStr)
				}
				if maxAgeStr != "" {
					h.Set("Access-Control-Max-Age", maxAgeStr)
				}
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed checks if the given origin is in the allowed list.
func isOriginAllowed(origin string, originMap map[string]bool, allowedOrigins []string) bool {
	normalizedOrigin := strings.ToLower(origin)

	if originMap[normalizedOrigin] {
		return true
	}

	// Wildcard subdomain patterns like "*.example.com"
	for _, allowed := range allowedOrigins {
		if !strings.HasPrefix(allowed, "*.") {
			continue
		}
		suffix := strings.ToLower(strings.TrimPrefix(allowed, "*"))
		if strings.HasSuffix(normalizedOrigin, suffix) {
			// "*.example.com" matches "sub.example.com" but not "notexample.com"
			prefix := strings.TrimSuffix(normalizedOrigin, suffix)
			if strings.HasSuffix(prefix, "://") || strings.Contains(prefix, ".") {
				return true
			}
		}
	}

	return false
}
