// Package metrics exposes Prometheus instrumentation for optimization runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus collectors for the optimization service.
type Collector struct {
	RunsStarted   prometheus.Counter
	RunsCompleted prometheus.Counter
	RunsFailed    prometheus.Counter
	RunsCancelled prometheus.Counter

	Iterations  prometheus.Counter
	Evaluations prometheus.Counter

	RunDuration prometheus.Histogram
}

// NewCollector creates the collectors and registers them on the given
// registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simplexd_runs_started_total",
			Help: "Number of optimization runs started.",
		}),
		RunsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simplexd_runs_completed_total",
			Help: "Number of optimization runs that terminated normally.",
		}),
		RunsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simplexd_runs_failed_total",
			Help: "Number of optimization runs that aborted with an error.",
		}),
		RunsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simplexd_runs_cancelled_total",
			Help: "Number of optimization runs cancelled by the caller.",
		}),
		Iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simplexd_iterations_total",
			Help: "Number of simplex iterations across all runs.",
		}),
		Evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simplexd_objective_evaluations_total",
			Help: "Number of objective function evaluations across all runs.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simplexd_run_duration_seconds",
			Help:    "Wall-clock duration of optimization runs.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}

	reg.MustRegister(
		c.RunsStarted,
		c.RunsCompleted,
		c.RunsFailed,
		c.RunsCancelled,
		c.Iterations,
		c.Evaluations,
		c.RunDuration,
	)

	return c
}
