package notify

import (
	"context"

	"go.uber.org/multierr"
)

// Decision is what a run hands to the external notifier.
type Decision struct {
	Needed  bool
	Subject string
	Body    string
}

// Sink receives the decision of a run. Delivery to people is somebody else's job.
type Sink interface {
	Emit(ctx context.Context, d Decision) error
}

// Multi fans a decision out to every sink and returns all failures combined.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, d Decision) error {
	var err error
	for _, s := range m {
		if s == nil {
			continue
		}
		err = multierr.Append(err, s.Emit(ctx, d))
	}
	return err
}
