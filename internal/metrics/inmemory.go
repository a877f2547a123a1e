package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Submissions            map[string]uint64
	Notifications          map[string]uint64
	PersistDurationCount   uint64
	PersistDurationTotalNs int64
	RateLimitKeys          int64
	HTTPRequests           uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu            sync.Mutex
	submissions   map[string]uint64
	notifications map[string]uint64

	persistDurationCount   uint64
	persistDurationTotalNs int64
	rateLimitKeys          int64
	httpRequests           uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		submissions:   make(map[string]uint64),
		notifications: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	subs := make(map[string]uint64, len(m.submissions))
	for k, v := range m.submissions {
		subs[k] = v
	}
	notes := make(map[string]uint64, len(m.notifications))
	for k, v := range m.notifications {
		notes[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		Submissions:            subs,
		Notifications:          notes,
		PersistDurationCount:   atomic.LoadUint64(&m.persistDurationCount),
		PersistDurationTotalNs: atomic.LoadInt64(&m.persistDurationTotalNs),
		RateLimitKeys:          atomic.LoadInt64(&m.rateLimitKeys),
		HTTPRequests:           atomic.LoadUint64(&m.httpRequests),
	}
}

// IncSubmission increments the counter for a submission outcome.
func (m *InMemoryRecorder) IncSubmission(outcome string) {
	m.mu.Lock()
	m.submissions[outcome]++
	m.mu.Unlock()
}

// IncNotification increments the counter for a notification status.
func (m *InMemoryRecorder) IncNotification(status string) {
	m.mu.Lock()
	m.notifications[status]++
	m.mu.Unlock()
}

// ObservePersistDuration records store write duration.
func (m *InMemoryRecorder) ObservePersistDuration(duration time.Duration) {
	atomic.AddUint64(&m.persistDurationCount, 1)
	atomic.AddInt64(&m.persistDurationTotalNs, duration.Nanoseconds())
}

// SetRateLimitKeys sets the tracked key gauge.
func (m *InMemoryRecorder) SetRateLimitKeys(n int) {
	atomic.StoreInt64(&m.rateLimitKeys, int64(n))
}

// ObserveHTTPRequest counts served requests.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}
