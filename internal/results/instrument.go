package results

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Instruments holds the Prometheus collectors for cache and aggregation
type Instruments struct {
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheEvictions prometheus.Counter
	cacheEntries   prometheus.Gauge
	parseDuration  prometheus.Histogram
	targetFailures *prometheus.CounterVec
}

// NewInstruments registers the collectors with reg. A nil registerer keeps
// the collectors unregistered, which is what tests usually want.
func NewInstruments(reg prometheus.Registerer) *Instruments {
	factory := promauto.With(reg)

	return &Instruments{
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "loadcompare",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Number of metrics lookups served from cache",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "loadcompare",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Number of metrics lookups that parsed the event log",
		}),
		cacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "loadcompare",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Number of cache entries dropped to stay within capacity",
		}),
		cacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "loadcompare",
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Current number of cached metrics",
		}),
		parseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "loadcompare",
			Subsystem: "parser",
			Name:      "duration_seconds",
			Help:      "Time spent streaming one event log",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}),
		targetFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loadcompare",
			Subsystem: "aggregator",
			Name:      "target_failures_total",
			Help:      "Number of targets dropped from a result set because loading failed",
		}, []string{"scenario", "target"}),
	}
}
