package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/hamed0406/pricealert/internal/domain"
	"github.com/hamed0406/pricealert/internal/repo"
)

func TestMemoryStore_EmptyLoad(t *testing.T) {
	_, err := New().Load(context.Background())
	if !errors.Is(err, repo.ErrNoState) {
		t.Fatalf("want ErrNoState, got %v", err)
	}
}

func TestMemoryStore_SaveAndLoadCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	st := domain.NewState()
	st.Targets["btc"] = domain.TargetState{Armed: false, LastState: domain.ZoneBelow}
	if err := s.Save(ctx, st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// mutating the caller's copy must not leak into the store
	st.Targets["btc"] = domain.NewTargetState()

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Targets["btc"].Armed {
		t.Fatalf("store shares map with caller: %+v", got.Targets["btc"])
	}
	if got.Version != domain.StateVersion {
		t.Fatalf("want version %d, got %d", domain.StateVersion, got.Version)
	}
	if s.Saves() != 1 {
		t.Fatalf("want 1 save, got %d", s.Saves())
	}
}
