// Package metrics records run outcomes for node-exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pricefetch/internal/coordinator"
)

const namespace = "pricefetch"

// Recorder holds the counters for one run on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	symbols  *prometheus.CounterVec
	attempts *prometheus.CounterVec
	rows     prometheus.Gauge
	lastRun  prometheus.Gauge
	duration prometheus.Gauge
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		symbols: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "symbols_total",
				Help:      "Symbols processed, by outcome and rejection reason.",
			},
			[]string{"outcome", "reason"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_attempts_total",
				Help:      "Provider requests made, by result.",
			},
			[]string{"result"},
		),
		rows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_written",
			Help:      "Rows in the last written output file.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
	r.registry.MustRegister(r.symbols, r.attempts, r.rows, r.lastRun, r.duration)
	return r
}

// ObserveAttempt matches fetcher.AttemptHook.
func (r *Recorder) ObserveAttempt(symbol string, attempt int, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	r.attempts.WithLabelValues(result).Inc()
}

// ObserveResult counts every outcome in result.
func (r *Recorder) ObserveResult(result *coordinator.RunResult) {
	if n := len(result.Accepted()); n > 0 {
		r.symbols.WithLabelValues("accepted", "none").Add(float64(n))
	}
	for _, rej := range result.Rejected() {
		r.symbols.WithLabelValues("rejected", string(rej.Reason)).Inc()
	}
}

// ObserveWrite records the rows written to the output file.
func (r *Recorder) ObserveWrite(rows int) {
	r.rows.Set(float64(rows))
}

// Finish stamps the run end time and duration.
func (r *Recorder) Finish(start, end time.Time) {
	r.lastRun.Set(float64(end.Unix()))
	r.duration.Set(end.Sub(start).Seconds())
}

// WriteFile writes all metrics in text exposition format to path.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
