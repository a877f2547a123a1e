package middleware

import (
	"net/http"
)

// SecurityConfig controls the response hardening headers.
type SecurityConfig struct {
	// HSTS adds Strict-Transport-Security. Enable only behind HTTPS.
	HSTS bool
}

// responseHeaders are set on every intake response. The endpoint only
// ever returns JSON, so nothing may be framed, sniffed or cached.
// CORP is cross-origin because browsers on other origins read the response.
var responseHeaders = map[string]string{
	"X-Content-Type-Options":       "nosniff",
	"X-Frame-Options":              "DENY",
	"X-XSS-Protection":             "0",
	"Referrer-Policy":              "strict-origin-when-cross-origin",
	"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'",
	"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=(), usb=()",
	"Cross-Origin-Opener-Policy":   "same-origin",
	"Cross-Origin-Resource-Policy": "cross-origin",
	"Cache-Control":                "no-store",
}

const hstsValue = "max-age=31536000; includeSubDomains; preload"

// Security sets hardening headers before the handler runs.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range responseHeaders {
				h.Set(k, v)
			}
			if cfg.HSTS {
				h.Set("Strict-Transport-Security", hstsValue)
			}
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}

const bodyTooLargeBody = `{"error":"Request body too large"}`

// MaxBodySize rejects bodies over maxBytes with a JSON 413. A declared
// Content-Length over the cap is refused up front; otherwise the body is
// wrapped so the decoder sees *http.MaxBytesError.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.ContentLength > maxBytes {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_, _ = w.Write([]byte(bodyTooLargeBody))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
