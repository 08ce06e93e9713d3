// Package metrics exposes the balancer's Prometheus surface: the last
// aggregate cost observed, the number of moves emitted, the number of
// steps run, and the wall-clock duration of each balance invocation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the counters and gauges one Balancer registers.
type Metrics struct {
	LastCost     prometheus.Gauge
	MovesEmitted prometheus.Counter
	StepsRun     prometheus.Histogram
	StepDuration prometheus.Histogram
}

// New constructs a Metrics set without registering it; call Register to
// attach it to a registry.
func New() *Metrics {
	return &Metrics{
		LastCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "balancer",
			Name:      "last_cost",
			Help:      "Aggregate weighted cost after the most recent balance invocation.",
		}),
		MovesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "balancer",
			Name:      "moves_emitted_total",
			Help:      "Total number of region moves emitted across all balance invocations.",
		}),
		StepsRun: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "balancer",
			Name:      "steps_run",
			Help:      "Number of hill-climbing steps executed per balance invocation.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}),
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "balancer",
			Name:      "step_duration_seconds",
			Help:      "Wall-clock duration of one balance invocation.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Register attaches every collector in m to reg.
func (m *Metrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(m.LastCost, m.MovesEmitted, m.StepsRun, m.StepDuration)
}
