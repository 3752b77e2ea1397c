package metrics

import (
	"maps"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager.
type Option func(*Manager)

// WithNames sets the namespace and subsystem that start every metric name and
// an optional prefix placed before the metric's own name, giving
// namespace_subsystem_prefix_name. Empty namespace or subsystem keep the defaults.
func WithNames(namespace, subsystem, prefix string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
		if subsystem != "" {
			m.subsystem = subsystem
		}
		m.metricPrefix = prefix
	}
}

// WithConstLabels attaches labels such as the deployment to every collector.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if len(labels) > 0 {
			m.customLabels = maps.Clone(labels)
		}
	}
}

// WithLatencyBuckets replaces the millisecond buckets of every latency histogram.
// Buckets that are empty or not strictly increasing are ignored.
func WithLatencyBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if ValidBuckets(buckets) {
			m.histogramBuckets = append([]float64(nil), buckets...)
		}
	}
}

// WithEnabled turns the Record and Update helpers on or off.
func WithEnabled(enabled bool) Option {
	return func(m *Manager) {
		m.enabled = enabled
	}
}

// WithRefreshInterval sets how often StartSystemCollector samples runtime stats.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval = interval
		}
	}
}

// WithRegistry registers the collectors on r instead of the default registerer.
func WithRegistry(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// ValidBuckets reports whether b is non-empty, positive and strictly increasing.
func ValidBuckets(b []float64) bool {
	if len(b) == 0 || b[0] <= 0 {
		return false
	}
	for i := 1; i < len(b); i++ {
		if b[i] <= b[i-1] {
			return false
		}
	}
	return true
}
