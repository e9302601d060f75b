package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder owns its registry so tests and multiple runners never collide
// on the global one.
type Recorder struct {
	reg *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	alertsTotal   *prometheus.CounterVec
	lastPrice     prometheus.Gauge
	targetArmed   *prometheus.GaugeVec
	fetchDuration prometheus.Histogram
	lastRunUnix   prometheus.Gauge
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricealert_runs_total",
				Help: "Completed and failed runs by result",
			},
			[]string{"result"},
		),
		alertsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricealert_alerts_total",
				Help: "Alerts fired per target",
			},
			[]string{"target"},
		),
		lastPrice: f.NewGauge(prometheus.GaugeOpts{
			Name: "pricealert_last_price",
			Help: "Price observed by the most recent run",
		}),
		targetArmed: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricealert_target_armed",
				Help: "1 when the target may fire a new alert",
			},
			[]string{"target"},
		),
		fetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricealert_fetch_duration_seconds",
			Help:    "Duration of price fetches",
			Buckets: prometheus.DefBuckets,
		}),
		lastRunUnix: f.NewGauge(prometheus.GaugeOpts{
			Name: "pricealert_last_run_timestamp_seconds",
			Help: "Unix time of the most recent completed run",
		}),
	}
}

// RecordRun counts a run; result is "ok" or an error kind.
func (r *Recorder) RecordRun(result string, unix float64) {
	r.runsTotal.WithLabelValues(result).Inc()
	if result == "ok" {
		r.lastRunUnix.Set(unix)
	}
}

func (r *Recorder) RecordAlert(target string) {
	r.alertsTotal.WithLabelValues(target).Inc()
}

func (r *Recorder) RecordPrice(price float64) {
	r.lastPrice.Set(price)
}

func (r *Recorder) RecordArmed(target string, armed bool) {
	v := 0.0
	if armed {
		v = 1
	}
	r.targetArmed.WithLabelValues(target).Set(v)
}

func (r *Recorder) RecordFetch(seconds float64) {
	r.fetchDuration.Observe(seconds)
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Push sends the registry to a Pushgateway. Short-lived jobs have no scrape window.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	return push.New(url, job).Gatherer(r.reg).PushContext(ctx)
}
