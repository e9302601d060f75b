package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/pricealert/internal/domain"
	"github.com/hamed0406/pricealert/internal/repo"
)

var _ repo.StateStore = (*Store)(nil)

// Schema is applied by Migrate. Safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS alert_state_meta (
  id         SMALLINT PRIMARY KEY CHECK (id = 1),
  version    INTEGER NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS alert_target_state (
  target_id        TEXT PRIMARY KEY,
  armed            BOOLEAN NOT NULL,
  last_alert_at_ms BIGINT NULL,
  last_state       TEXT NOT NULL DEFAULT '',
  updated_at       TIMESTAMPTZ NOT NULL
);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (domain.State, error) {
	st := domain.NewState()

	var version int
	err := s.pool.QueryRow(ctx, `SELECT version FROM alert_state_meta WHERE id = 1`).Scan(&version)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.State{}, repo.ErrNoState
	case err != nil:
		return domain.State{}, fmt.Errorf("load meta: %w", err)
	}
	if version != domain.StateVersion {
		return domain.State{}, fmt.Errorf("load meta: unsupported version %d", version)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT target_id, armed, last_alert_at_ms, last_state
		   FROM alert_target_state`)
	if err != nil {
		return domain.State{}, fmt.Errorf("load targets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id        string
			armed     bool
			lastAlert *int64
			lastState string
		)
		if err := rows.Scan(&id, &armed, &lastAlert, &lastState); err != nil {
			return domain.State{}, fmt.Errorf("scan target state: %w", err)
		}
		st.Targets[domain.TargetID(id)] = domain.TargetState{
			Armed:         armed,
			LastAlertAtMs: lastAlert,
			LastState:     domain.Zone(lastState),
		}
	}
	if err := rows.Err(); err != nil {
		return domain.State{}, fmt.Errorf("load targets: %w", err)
	}
	return st, nil
}

// Save upserts every record and the version row in one transaction.
// Rows for ids missing from st are left alone, as the file store does.
func (s *Store) Save(ctx context.Context, st domain.State) error {
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO alert_state_meta (id, version, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, updated_at = EXCLUDED.updated_at`,
		domain.StateVersion, now)
	for id, rec := range st.Targets {
		batch.Queue(`
			INSERT INTO alert_target_state (target_id, armed, last_alert_at_ms, last_state, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (target_id)
			DO UPDATE SET armed = EXCLUDED.armed,
			              last_alert_at_ms = EXCLUDED.last_alert_at_ms,
			              last_state = EXCLUDED.last_state,
			              updated_at = EXCLUDED.updated_at`,
			string(id), rec.Armed, rec.LastAlertAtMs, string(rec.LastState), now)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if s.log != nil {
		s.log.Debug("pg_state_saved", zap.Int("targets", len(st.Targets)))
	}
	return nil
}
