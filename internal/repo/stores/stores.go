// Package stores opens the StateStore selected by configuration.
package stores

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/pricealert/internal/config"
	"github.com/hamed0406/pricealert/internal/domain"
	"github.com/hamed0406/pricealert/internal/repo"
	"github.com/hamed0406/pricealert/internal/repo/file"
	"github.com/hamed0406/pricealert/internal/repo/memory"
	"github.com/hamed0406/pricealert/internal/repo/postgres"
	"github.com/hamed0406/pricealert/internal/repo/redis"
)

// Open returns the store and a close func that is always safe to call.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (repo.StateStore, func(), error) {
	noop := func() {}

	switch cfg.StateBackend {
	case "", "file":
		return file.New(cfg.StateFile), noop, nil

	case "memory":
		return memory.New(), noop, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, noop, fmt.Errorf("%w: STATE_BACKEND=postgres needs DATABASE_URL", domain.ErrConfig)
		}
		s, err := postgres.New(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres: %w", err)
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, noop, err
		}
		return s, s.Close, nil

	case "redis":
		s, err := redis.New(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("open redis: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	}

	return nil, noop, fmt.Errorf("%w: unknown STATE_BACKEND %q", domain.ErrConfig, cfg.StateBackend)
}
