// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Submission outcomes.
const (
	OutcomeAccepted    = "accepted"
	OutcomeRateLimited = "rate_limited"
	OutcomeInvalid     = "invalid"
	OutcomeMalformed   = "malformed"
	OutcomeDuplicate   = "duplicate"
	OutcomeFailed      = "failed"
)

// Notification statuses.
const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationSkipped = "skipped"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Intake metrics
	IncSubmission(outcome string)
	IncNotification(status string)
	ObservePersistDuration(duration time.Duration)

	// Rate limiter metrics
	SetRateLimitKeys(n int)

	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
