// Package ratelimit provides the in-process fixed-window submission limiter.
//
// State lives in process memory only. Running several instances turns the
// limit into a per-instance limit, and the client key comes from a spoofable
// header, so this is coarse abuse mitigation rather than a security boundary.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Defaults for the intake endpoint.
const (
	DefaultLimit         = 3
	DefaultWindow        = time.Hour
	DefaultMaxKeys       = 10000
	DefaultSweepInterval = 5 * time.Minute
)

// Config configures a Limiter.
type Config struct {
	// Limit is the number of accepted checks per key per window.
	Limit int
	// Window is the fixed window length.
	Window time.Duration
	// MaxKeys bounds the number of tracked keys. The least recently used
	// record is evicted when a new key arrives at capacity.
	MaxKeys int
	// SweepInterval is how often Run removes expired records.
	SweepInterval time.Duration
}

// Decision is the outcome of a Check.
type Decision struct {
	Allowed   bool
	Remaining int
	// ResetAt is the end of the key's current window.
	ResetAt time.Time
}

type record struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window counter keyed by client identifier.
// A client can get up to twice the limit across a window boundary.
type Limiter struct {
	mu      sync.Mutex
	records *lru.Cache[string, *record]

	limit         int
	window        time.Duration
	sweepInterval time.Duration

	now    func() time.Time
	logger *slog.Logger
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithLogger sets the logger used by the sweeper.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger.With("component", "ratelimit") }
}

// New creates a Limiter. Zero config values fall back to the defaults.
func New(cfg Config, opts ...Option) (*Limiter, error) {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = DefaultMaxKeys
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	records, err := lru.New[string, *record](cfg.MaxKeys)
	if err != nil {
		return nil, fmt.Errorf("create record cache: %w", err)
	}

	l := &Limiter{
		records:       records,
		limit:         cfg.Limit,
		window:        cfg.Window,
		sweepInterval: cfg.SweepInterval,
		now:           time.Now,
		logger:        slog.Default().With("component", "ratelimit"),
	}
	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Check counts one attempt for key and reports whether it is allowed.
// A denied check does not consume anything and reports the current window's reset time.
func (l *Limiter) Check(key string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records.Get(key)
	if !ok || now.After(rec.resetAt) {
		rec = &record{count: 1, resetAt: now.Add(l.window)}
		l.records.Add(key, rec)
		return Decision{Allowed: true, Remaining: l.limit - 1, ResetAt: rec.resetAt}
	}

	if rec.count >= l.limit {
		return Decision{Allowed: false, Remaining: 0, ResetAt: rec.resetAt}
	}

	rec.count++
	return Decision{Allowed: true, Remaining: l.limit - rec.count, ResetAt: rec.resetAt}
}

// Sweep removes every record whose window has ended and returns how many were removed.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for _, key := range l.records.Keys() {
		rec, ok := l.records.Peek(key)
		if ok && now.After(rec.resetAt) {
			l.records.Remove(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	return l.records.Len()
}

// Limit returns the per-window limit.
func (l *Limiter) Limit() int {
	return l.limit
}

// Run sweeps expired records every SweepInterval until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := l.Sweep(); removed > 0 {
				l.logger.Debug("swept expired rate limit records",
					slog.Int("removed", removed),
					slog.Int("remaining", l.Len()),
				)
			}
		}
	}
}
