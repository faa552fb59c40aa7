package report

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/scenario"
)

// Metrics collects per-scenario outcomes for a node_exporter textfile.
// Observe is safe for concurrent use, so it can be hooked straight into
// the runner's result callback.
type Metrics struct {
	reg            *prometheus.Registry
	Scenarios      *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	TeardownErrors *prometheus.CounterVec
	LastRun        prometheus.Gauge
	RunDuration    prometheus.Gauge
}

// NewMetrics returns collectors registered on a private registry.
func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	scenarios := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_e2e_scenarios_total",
			Help: "Scenarios executed by channel and status",
		},
		[]string{"channel", "status"},
	)
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notes_e2e_scenario_duration_seconds",
			Help:    "Scenario wall time including teardown",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"channel"},
	)
	teardown := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_e2e_teardown_errors_total",
			Help: "Teardown steps that failed",
		},
		[]string{"channel"},
	)
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notes_e2e_last_run_timestamp_seconds",
		Help: "Unix time the last run finished",
	})
	runDur := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notes_e2e_run_duration_seconds",
		Help: "Wall time of the last run",
	})

	r.MustRegister(scenarios, dur, teardown, lastRun, runDur)

	return &Metrics{
		reg:            r,
		Scenarios:      scenarios,
		Duration:       dur,
		TeardownErrors: teardown,
		LastRun:        lastRun,
		RunDuration:    runDur,
	}
}

// Observe records one result.
func (m *Metrics) Observe(res scenario.Result) {
	ch := string(res.Channel)
	m.Scenarios.WithLabelValues(ch, string(res.Status)).Inc()
	if res.Status != scenario.Skip {
		m.Duration.WithLabelValues(ch).Observe(res.Duration.Seconds())
	}
	if n := len(res.Teardown); n > 0 {
		m.TeardownErrors.WithLabelValues(ch).Add(float64(n))
	}
}

// Finish records the run timings from rep.
func (m *Metrics) Finish(rep *Report) {
	m.LastRun.Set(float64(rep.Finished.Unix()))
	m.RunDuration.Set(rep.Duration().Seconds())
}

// WriteTextfile writes every collector to path in the text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return errs.Wrap(errs.FixtureIO, "write metrics textfile", err)
	}
	return nil
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }
