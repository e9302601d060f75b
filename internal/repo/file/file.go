// Package file keeps the state container in a single JSON file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hamed0406/pricealert/internal/domain"
	"github.com/hamed0406/pricealert/internal/repo"
)

type Store struct {
	Path string
}

func New(path string) *Store {
	return &Store{Path: path}
}

// Load returns repo.ErrNoState when the file does not exist, and a decode
// error when it is unreadable or has an unknown version.
func (s *Store) Load(ctx context.Context) (domain.State, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.State{}, repo.ErrNoState
		}
		return domain.State{}, fmt.Errorf("read state: %w", err)
	}

	var st domain.State
	if err := json.Unmarshal(b, &st); err != nil {
		return domain.State{}, fmt.Errorf("decode state %s: %w", s.Path, err)
	}
	// files written before versioning carry no tag
	if st.Version == 0 {
		st.Version = domain.StateVersion
	}
	if st.Version != domain.StateVersion {
		return domain.State{}, fmt.Errorf("decode state %s: unsupported version %d", s.Path, st.Version)
	}
	if st.Targets == nil {
		st.Targets = make(map[domain.TargetID]domain.TargetState)
	}
	return st, nil
}

// Save replaces the file atomically: write a sibling temp file, sync, rename.
func (s *Store) Save(ctx context.Context, st domain.State) error {
	if st.Version == 0 {
		st.Version = domain.StateVersion
	}
	if st.Targets == nil {
		st.Targets = make(map[domain.TargetID]domain.TargetState)
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	b = append(b, '\n')

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp state: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

var _ repo.StateStore = (*Store)(nil)
