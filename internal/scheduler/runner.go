package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/pricealert/internal/config"
	"github.com/hamed0406/pricealert/internal/domain"
	"github.com/hamed0406/pricealert/internal/hysteresis"
	"github.com/hamed0406/pricealert/internal/metrics"
	"github.com/hamed0406/pricealert/internal/notify"
	"github.com/hamed0406/pricealert/internal/repo"
	"github.com/hamed0406/pricealert/internal/source"
)

type RunnerConfig struct {
	Link     string        // back-reference printed in the alert body
	Interval time.Duration // 0 means Run performs a single pass
	DryRun   bool          // evaluate only: no state write, no outputs
	Metrics  *metrics.Recorder
	Now      func() time.Time
}

// Runner loads state, fetches one price, evaluates every target against it,
// saves the updated state once and hands the decision to the sink.
type Runner struct {
	logger  *zap.Logger
	targets []domain.Target
	source  source.PriceSource
	store   repo.StateStore
	sink    notify.Sink
	cfg     RunnerConfig
}

func NewRunner(
	logger *zap.Logger,
	targets []domain.Target,
	src source.PriceSource,
	store repo.StateStore,
	sink notify.Sink,
	cfg RunnerConfig,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	return &Runner{
		logger:  logger,
		targets: targets,
		source:  src,
		store:   store,
		sink:    sink,
		cfg:     cfg,
	}
}

// TargetResult is the evaluation of one target in one run.
type TargetResult struct {
	Target domain.Target
	Prev   domain.TargetState
	Next   domain.TargetState
	Alert  bool
}

type Outcome struct {
	RunID    string
	Price    float64
	At       time.Time
	Results  []TargetResult
	Alerts   []domain.Alert
	Decision notify.Decision
	State    domain.State
}

// Run performs one pass, or with an interval, one immediate pass and then one
// per tick until ctx is cancelled. Failed passes in loop mode are logged and
// the next tick is a fresh attempt.
func (r *Runner) Run(ctx context.Context) error {
	if r.cfg.Interval == 0 {
		_, err := r.RunOnce(ctx)
		return err
	}

	t := time.NewTicker(r.cfg.Interval)
	defer t.Stop()

	r.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner_stopped")
			return nil
		case <-t.C:
			r.runLogged(ctx)
		}
	}
}

func (r *Runner) runLogged(ctx context.Context) {
	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Error("run_failed", zap.Error(err))
	}
}

func (r *Runner) RunOnce(ctx context.Context) (*Outcome, error) {
	out := &Outcome{RunID: uuid.NewString()}
	log := r.logger.With(zap.String("run_id", out.RunID))
	log.Info("run_started", zap.Int("targets", len(r.targets)), zap.Bool("dry_run", r.cfg.DryRun))

	// configuration is checked before anything touches the network
	if err := config.ValidateTargets(r.targets); err != nil {
		return nil, r.fail(err)
	}

	state := r.loadState(ctx, log)

	start := time.Now()
	price, err := r.source.Fetch(ctx)
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordFetch(time.Since(start).Seconds())
	}
	if err != nil {
		if !errors.Is(err, domain.ErrFetch) {
			err = fmt.Errorf("%w: %v", domain.ErrFetch, err)
		}
		return nil, r.fail(err)
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordPrice(price)
	}

	// one clock reading for the whole run
	now := r.cfg.Now()
	out.Price = price
	out.At = now
	log.Info("price_fetched", zap.Float64("price", price))

	for _, tgt := range r.targets {
		prev := state.Record(tgt.ID)
		alert, next := hysteresis.Evaluate(price, tgt.Threshold, tgt.Buffer, prev, now)
		state.Targets[tgt.ID] = next

		out.Results = append(out.Results, TargetResult{Target: tgt, Prev: prev, Next: next, Alert: alert})
		if alert {
			out.Alerts = append(out.Alerts, domain.Alert{
				TargetID:  tgt.ID,
				Label:     tgt.Label,
				Threshold: tgt.Threshold,
				Buffer:    tgt.Buffer,
			})
		}

		log.Debug("target_evaluated",
			zap.String("target_id", string(tgt.ID)),
			zap.Float64("threshold", tgt.Threshold),
			zap.Float64("rearm_level", tgt.RearmLevel()),
			zap.String("zone", string(next.LastState)),
			zap.Bool("armed_before", prev.Armed),
			zap.Bool("armed", next.Armed),
			zap.Bool("alert", alert),
		)
		if r.cfg.Metrics != nil && !r.cfg.DryRun {
			r.cfg.Metrics.RecordArmed(string(tgt.ID), next.Armed)
			if alert {
				r.cfg.Metrics.RecordAlert(string(tgt.ID))
			}
		}
	}
	out.State = state

	if len(out.Alerts) > 0 {
		subject, body := notify.BuildMessage(out.Alerts, price, now, r.cfg.Link)
		out.Decision = notify.Decision{Needed: true, Subject: subject, Body: body}
	}

	if r.cfg.DryRun {
		log.Info("dry_run_complete", zap.Int("alerts", len(out.Alerts)))
		return out, nil
	}

	if err := r.store.Save(ctx, state); err != nil {
		return nil, r.fail(fmt.Errorf("%w: %v", domain.ErrStateWrite, err))
	}
	log.Info("state_saved", zap.Int("records", len(state.Targets)))

	if r.sink != nil {
		if err := r.sink.Emit(ctx, out.Decision); err != nil {
			return nil, r.fail(fmt.Errorf("%w: %v", domain.ErrOutput, err))
		}
	}

	if out.Decision.Needed {
		ids := make([]string, 0, len(out.Alerts))
		for _, a := range out.Alerts {
			ids = append(ids, string(a.TargetID))
		}
		log.Warn("alert_needed", zap.Strings("targets", ids), zap.String("subject", out.Decision.Subject))
	} else {
		log.Info("no_alert")
	}

	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordRun("ok", float64(now.Unix()))
	}
	return out, nil
}

// loadState never fails: a missing or unreadable store starts from scratch.
func (r *Runner) loadState(ctx context.Context, log *zap.Logger) domain.State {
	st, err := r.store.Load(ctx)
	switch {
	case errors.Is(err, repo.ErrNoState):
		log.Info("state_empty")
		return domain.NewState()
	case err != nil:
		log.Warn("state_load_failed", zap.Error(err))
		return domain.NewState()
	}
	if st.Targets == nil {
		st.Targets = make(map[domain.TargetID]domain.TargetState)
	}
	st.Version = domain.StateVersion
	return st
}

func (r *Runner) fail(err error) error {
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordRun(Kind(err), 0)
	}
	return err
}

// Kind names the error class for metrics and exit codes.
func Kind(err error) string {
	switch {
	case errors.Is(err, domain.ErrConfig):
		return "config"
	case errors.Is(err, domain.ErrFetch):
		return "fetch"
	case errors.Is(err, domain.ErrStateWrite):
		return "state_write"
	case errors.Is(err, domain.ErrOutput):
		return "output"
	default:
		return "other"
	}
}
