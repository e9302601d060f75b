// Package redis keeps the state container in a Redis hash keyed by target id.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hamed0406/pricealert/internal/domain"
	"github.com/hamed0406/pricealert/internal/repo"
)

var _ repo.StateStore = (*Store)(nil)

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store layout:
//
//	<prefix>:state:version  -> "1"
//	<prefix>:state:targets  -> hash of target id -> JSON record
type Store struct {
	client *goredis.Client
	prefix string
}

func New(ctx context.Context, opts Options) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(client, opts.Prefix), nil
}

func NewWithClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "pricealert"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Load(ctx context.Context) (domain.State, error) {
	v, err := s.client.Get(ctx, s.key("version")).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.State{}, repo.ErrNoState
		}
		return domain.State{}, fmt.Errorf("load version: %w", err)
	}
	version, err := strconv.Atoi(v)
	if err != nil || version != domain.StateVersion {
		return domain.State{}, fmt.Errorf("load version: unsupported version %q", v)
	}

	raw, err := s.client.HGetAll(ctx, s.key("targets")).Result()
	if err != nil {
		return domain.State{}, fmt.Errorf("load targets: %w", err)
	}

	st := domain.NewState()
	for id, blob := range raw {
		var rec domain.TargetState
		if err := json.Unmarshal([]byte(blob), &rec); err != nil {
			return domain.State{}, fmt.Errorf("decode target %q: %w", id, err)
		}
		st.Targets[domain.TargetID(id)] = rec
	}
	return st, nil
}

// Save writes the hash and the version in one MULTI/EXEC.
func (s *Store) Save(ctx context.Context, st domain.State) error {
	fields := make(map[string]interface{}, len(st.Targets))
	for id, rec := range st.Targets {
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode target %q: %w", id, err)
		}
		fields[string(id)] = b
	}

	pipe := s.client.TxPipeline()
	if len(fields) > 0 {
		pipe.HSet(ctx, s.key("targets"), fields)
	}
	pipe.Set(ctx, s.key("version"), domain.StateVersion, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *Store) key(name string) string {
	return fmt.Sprintf("%s:state:%s", s.prefix, name)
}
