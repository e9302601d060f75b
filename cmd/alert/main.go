package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/pricealert/internal/config"
	"github.com/hamed0406/pricealert/internal/domain"
	"github.com/hamed0406/pricealert/internal/logging"
	"github.com/hamed0406/pricealert/internal/metrics"
	"github.com/hamed0406/pricealert/internal/notify"
	"github.com/hamed0406/pricealert/internal/repo/stores"
	"github.com/hamed0406/pricealert/internal/scheduler"
	"github.com/hamed0406/pricealert/internal/source"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = alert(ctx, cfg, logger)
	if err != nil {
		logger.Error("run_aborted", zap.String("kind", scheduler.Kind(err)), zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return exitCode(err)
}

func alert(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	targets, err := config.LoadTargets(cfg.TargetsFile)
	if err != nil {
		return err
	}

	store, closeStore, err := stores.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	rec := metrics.New()
	src := source.NewHTTPSource(cfg.PriceURL, cfg.PriceField, cfg.HTTPTimeout)
	sink := notify.Multi{notify.NewGitHubOutput(cfg.OutputFile)}

	runner := scheduler.NewRunner(logger, targets, src, store, sink, scheduler.RunnerConfig{
		Link:     cfg.AlertLink,
		Interval: cfg.RunInterval,
		Metrics:  rec,
	})

	logger.Info("job_start",
		zap.Int("targets", len(targets)),
		zap.String("backend", cfg.StateBackend),
		zap.Duration("interval", cfg.RunInterval),
	)
	runErr := runner.Run(ctx)

	if cfg.PushgatewayURL != "" {
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rec.Push(pctx, cfg.PushgatewayURL, "pricealert"); err != nil {
			// metrics are best effort; the run result stands
			logger.Warn("metrics_push_failed", zap.Error(err))
		}
	}
	return runErr
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrConfig):
		return 2
	case errors.Is(err, domain.ErrFetch):
		return 3
	case errors.Is(err, domain.ErrStateWrite):
		return 4
	case errors.Is(err, domain.ErrOutput):
		return 5
	default:
		return 1
	}
}
