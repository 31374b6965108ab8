package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Defaults used when NewManager receives no overriding option. Every
// collector is exported as bidcycle_engine_<name>.
const (
	DefaultNamespace = "bidcycle"
	DefaultSubsystem = "engine"
)

// DefaultResolveBuckets covers a bid resolve and commit against the in-memory
// ledger (sub-millisecond) up to a slow Postgres round trip, in milliseconds.
// Ledger operation latency shares them.
func DefaultResolveBuckets() []float64 {
	return []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250}
}

// DefaultSweepBuckets covers one closing sweep, in milliseconds. A sweep
// touches every due item so it runs an order of magnitude longer than a bid.
func DefaultSweepBuckets() []float64 {
	return []float64{0.5, 1, 5, 10, 50, 100, 250, 500, 1000, 2500, 5000}
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace replaces the "bidcycle" metric prefix.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem replaces the "engine" metric prefix.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithResolveBuckets sets the millisecond buckets of the bid resolve and
// ledger operation histograms.
func WithResolveBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.resolveBuckets = buckets
		}
	}
}

// WithSweepBuckets sets the millisecond buckets of the sweep duration
// histogram.
func WithSweepBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.sweepBuckets = buckets
		}
	}
}

// WithInstance labels every collector with instance=id, so engines sharing
// one Postgres ledger can be told apart on a dashboard.
func WithInstance(id string) Option {
	return WithConstLabels(map[string]string{"instance": id})
}

// WithConstLabels merges labels into the constant labels of every collector.
// Empty values are ignored.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) {
		for k, v := range labels {
			if v == "" {
				continue
			}
			if m.constLabels == nil {
				m.constLabels = prometheus.Labels{}
			}
			m.constLabels[k] = v
		}
	}
}

// WithRegistry registers the collectors on r instead of the default
// registerer. The package-level manager uses a private registry so /metrics
// only exports engine series.
func WithRegistry(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}
