package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// unexpectedErrorBody is the client-facing body for any unhandled failure.
const unexpectedErrorBody = `{"error":"An unexpected error occurred"}`

// Recoverer turns a panic into the generic intake 500 body, so clients see
// the same error shape as any other unexpected failure. Aborted handlers
// are re-panicked for net/http to handle.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}

					logger.Error("panic recovered",
						slog.String("request_id", GetRequestID(r.Context())),
						slog.String("path", r.URL.Path),
						slog.Any("panic", rvr),
						slog.String("stack", string(debug.Stack())),
					)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(unexpectedErrorBody))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
