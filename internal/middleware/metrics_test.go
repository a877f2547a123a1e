package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/artcircle/waitlist/internal/metrics"
)

type observed struct {
	method, route string
	status        int
}

type capturingRecorder struct {
	metrics.NoopRecorder
	mu   sync.Mutex
	seen []observed
}

func (c *capturingRecorder) ObserveHTTPRequest(method, route string, status int, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, observed{method, route, status})
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	rec := &capturingRecorder{}

	r := chi.NewRouter()
	r.Use(Metrics(rec))
	r.Post("/api/v1/applications", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	for _, path := range []string{"/api/v1/applications", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}

	if len(rec.seen) != 2 {
		t.Fatalf("observed %d requests, want 2", len(rec.seen))
	}
	if got := rec.seen[0]; got != (observed{"POST", "/api/v1/applications", http.StatusConflict}) {
		t.Errorf("first observation = %+v", got)
	}
	if got := rec.seen[1]; got.status != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", got.status)
	}
}
