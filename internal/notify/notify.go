// Package notify sends operator notifications about new waitlist applications.
package notify

import (
	"context"

	"github.com/artcircle/waitlist/internal/model"
)

// Sink delivers a notification for an accepted submission.
// Delivery is at most once; callers decide what a failure means.
type Sink interface {
	Notify(ctx context.Context, s *model.Submission) error
}

// Noop discards notifications.
type Noop struct{}

// Notify is a no-op.
func (Noop) Notify(context.Context, *model.Submission) error { return nil }
