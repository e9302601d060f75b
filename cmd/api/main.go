package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/pricealert/internal/config"
	"github.com/hamed0406/pricealert/internal/httpapi"
	apimw "github.com/hamed0406/pricealert/internal/httpapi/middleware"
	"github.com/hamed0406/pricealert/internal/logging"
	"github.com/hamed0406/pricealert/internal/metrics"
	"github.com/hamed0406/pricealert/internal/repo/stores"
	"github.com/hamed0406/pricealert/internal/scheduler"
	"github.com/hamed0406/pricealert/internal/source"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	targets, err := config.LoadTargets(cfg.TargetsFile)
	if err != nil {
		logger.Fatal("targets_load_failed", zap.Error(err))
	}
	store, closeStore, err := stores.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("state_open_failed", zap.Error(err))
	}
	defer closeStore()

	rec := metrics.New()

	// With an interval set the API process also runs the job in the
	// background, sharing the store and the metrics registry.
	if cfg.RunInterval > 0 {
		runner := scheduler.NewRunner(logger.Named("runner"), targets,
			source.NewHTTPSource(cfg.PriceURL, cfg.PriceField, cfg.HTTPTimeout),
			store, nil,
			scheduler.RunnerConfig{Link: cfg.AlertLink, Interval: cfg.RunInterval, Metrics: rec},
		)
		go func() { _ = runner.Run(ctx) }()
	}

	api := httpapi.NewServer(logger, targets, store, rec)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(apimw.Keys{Public: cfg.PublicAPIKeys}, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("api_listen", zap.String("addr", cfg.Addr), zap.Int("targets", len(targets)))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("api_failed", zap.Error(err))
	}
	logger.Info("api_stopped")
}
