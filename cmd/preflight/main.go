// cmd/preflight/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/pricealert/internal/config"
	"github.com/hamed0406/pricealert/internal/repo/stores"
)

type report struct {
	w      io.Writer
	errw   io.Writer
	failed bool
}

func (r *report) fail(msg string) { r.failed = true; fmt.Fprintln(r.errw, "✖", msg) }
func (r *report) warn(msg string) { fmt.Fprintln(r.errw, "⚠", msg) }
func (r *report) ok(msg string)   { fmt.Fprintln(r.w, "✔", msg) }

func main() {
	rep := &report{w: os.Stdout, errw: os.Stderr}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	check(ctx, config.FromEnv(), rep)
	if rep.failed {
		os.Exit(1)
	}
	rep.ok("preflight passed")
}

// check reports every problem it finds rather than stopping at the first.
func check(ctx context.Context, cfg config.Config, rep *report) {
	targets, err := config.LoadTargets(cfg.TargetsFile)
	if err != nil {
		rep.fail(err.Error())
	} else {
		rep.ok(fmt.Sprintf("TARGETS_FILE=%s (%d targets)", cfg.TargetsFile, len(targets)))
	}

	if u, err := url.Parse(cfg.PriceURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		rep.fail("PRICE_URL is not an http(s) URL: " + cfg.PriceURL)
	} else {
		rep.ok("PRICE_URL host=" + u.Host + " field=" + cfg.PriceField)
	}

	switch cfg.StateBackend {
	case "", "file":
		dir := filepath.Dir(cfg.StateFile)
		if fi, err := os.Stat(dir); err == nil && !fi.IsDir() {
			rep.fail("STATE_FILE directory is not a directory: " + dir)
		} else {
			rep.ok("STATE_BACKEND=file STATE_FILE=" + cfg.StateFile)
		}
	case "memory":
		rep.warn("STATE_BACKEND=memory: hysteresis state is lost between runs")
	default:
		_, closeStore, err := stores.Open(ctx, cfg, zap.NewNop())
		if err != nil {
			rep.fail(fmt.Sprintf("STATE_BACKEND=%s: %v", cfg.StateBackend, err))
			break
		}
		closeStore()
		rep.ok("STATE_BACKEND=" + cfg.StateBackend + " reachable")
	}

	if cfg.OutputFile == "" {
		rep.warn("GITHUB_OUTPUT empty; decisions will only be logged.")
	} else {
		rep.ok("GITHUB_OUTPUT present")
	}

	if len(cfg.PublicAPIKeys) == 0 {
		rep.warn("PUBLIC_API_KEYS empty; status API is open to anyone who can reach " + cfg.Addr)
	} else {
		for _, k := range cfg.PublicAPIKeys {
			if strings.ContainsAny(k, " \t") {
				rep.warn("PUBLIC_API_KEYS contains spaces; use comma-separated with no spaces, e.g. key1,key2")
				break
			}
		}
		rep.ok(fmt.Sprintf("PUBLIC_API_KEYS: %d configured", len(cfg.PublicAPIKeys)))
	}
}
