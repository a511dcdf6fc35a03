// Package observe carries the operational surface: Prometheus metrics and
// the admin HTTP endpoint.
package observe

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects counters for the resolver path. A nil *Metrics is valid
// and records nothing, so wiring metrics stays optional in tests.
type Metrics struct {
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	liveFetches    prometheus.Counter
	fetchFailures  prometheus.Counter
	resolveSeconds prometheus.Histogram
}

// NewMetrics creates and registers the resolver metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "callscope",
			Name:      "snapshot_cache_hits_total",
			Help:      "Snapshot cache hits with complete market data.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "callscope",
			Name:      "snapshot_cache_misses_total",
			Help:      "Snapshot cache misses or incomplete entries.",
		}),
		liveFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "callscope",
			Name:      "live_fetches_total",
			Help:      "Live market data fetch attempts.",
		}),
		fetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "callscope",
			Name:      "live_fetch_failures_total",
			Help:      "Live market data fetches that failed.",
		}),
		resolveSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "callscope",
			Name:      "resolve_duration_seconds",
			Help:      "Wall time of single-contract market state resolution.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.cacheHits, m.cacheMisses, m.liveFetches, m.fetchFailures, m.resolveSeconds)
	return m
}

func (m *Metrics) IncCacheHits() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) IncCacheMisses() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) IncLiveFetches() {
	if m != nil {
		m.liveFetches.Inc()
	}
}

func (m *Metrics) IncFetchFailures() {
	if m != nil {
		m.fetchFailures.Inc()
	}
}

func (m *Metrics) ObserveResolveSeconds(seconds float64) {
	if m != nil {
		m.resolveSeconds.Observe(seconds)
	}
}
