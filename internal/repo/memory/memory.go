package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/pricealert/internal/domain"
	"github.com/hamed0406/pricealert/internal/repo"
)

type Store struct {
	mu    sync.RWMutex
	state *domain.State
	saves int
}

func New() *Store {
	return &Store{}
}

func (m *Store) Load(ctx context.Context) (domain.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return domain.State{}, repo.ErrNoState
	}
	return m.state.Clone(), nil
}

func (m *Store) Save(ctx context.Context, st domain.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := st.Clone()
	if cp.Version == 0 {
		cp.Version = domain.StateVersion
	}
	m.state = &cp
	m.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (m *Store) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

var _ repo.StateStore = (*Store)(nil)
