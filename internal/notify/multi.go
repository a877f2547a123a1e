package notify

import (
	"context"
	"errors"

	"github.com/artcircle/waitlist/internal/model"
)

// Multi fans a notification out to every sink and joins their errors.
type Multi []Sink

// Notify calls every sink even when an earlier one fails.
func (m Multi) Notify(ctx context.Context, s *model.Submission) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Notify(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
