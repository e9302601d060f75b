package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/pricealert/internal/domain"
)

// ErrNoState is returned by Load when nothing has been persisted yet.
var ErrNoState = errors.New("repo: no persisted state")

// StateStore persists the run-level state container.
// Load is called once before evaluation and Save once after it.
type StateStore interface {
	Load(ctx context.Context) (domain.State, error)
	Save(ctx context.Context, st domain.State) error
}
