package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncSubmission is a no-op.
func (n *NoopRecorder) IncSubmission(outcome string) {}

// IncNotification is a no-op.
func (n *NoopRecorder) IncNotification(status string) {}

// ObservePersistDuration is a no-op.
func (n *NoopRecorder) ObservePersistDuration(duration time.Duration) {}

// SetRateLimitKeys is a no-op.
func (n *NoopRecorder) SetRateLimitKeys(count int) {}

// ObserveHTTPRequest is a no-op.
func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}
