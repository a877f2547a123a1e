package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "waitlist"

// PrometheusRecorder exposes metrics through a dedicated Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	submissions     *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	persistDuration prometheus.Histogram
	rateLimitKeys   prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewPrometheus registers the application collectors plus the Go and process
// collectors on a fresh registry.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Total number of intake submissions by outcome",
			},
			[]string{"outcome"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Total number of operator notifications by status",
			},
			[]string{"status"},
		),
		persistDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "persist_duration_seconds",
				Help:      "Duration of submission store writes in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		rateLimitKeys: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ratelimit_tracked_keys",
				Help:      "Number of client keys held by the rate limiter",
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// IncSubmission increments the submissions counter.
func (p *PrometheusRecorder) IncSubmission(outcome string) {
	p.submissions.WithLabelValues(outcome).Inc()
}

// IncNotification increments the notifications counter.
func (p *PrometheusRecorder) IncNotification(status string) {
	p.notifications.WithLabelValues(status).Inc()
}

// ObservePersistDuration records a store write duration.
func (p *PrometheusRecorder) ObservePersistDuration(duration time.Duration) {
	p.persistDuration.Observe(duration.Seconds())
}

// SetRateLimitKeys sets the tracked key gauge.
func (p *PrometheusRecorder) SetRateLimitKeys(n int) {
	p.rateLimitKeys.Set(float64(n))
}

// ObserveHTTPRequest records one served request.
func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
