package source

import "context"

// PriceSource supplies the single reading used by every target in a run.
type PriceSource interface {
	Fetch(ctx context.Context) (float64, error)
}

// Static always returns the same price. Used for what-if evaluation.
type Static float64

func (s Static) Fetch(context.Context) (float64, error) {
	return float64(s), nil
}
