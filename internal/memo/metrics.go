package memo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txfib_memo_lookups_total",
			Help: "Memo cache lookups by cache and outcome.",
		},
		[]string{"cache", "outcome"},
	)

	cacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txfib_memo_evictions_total",
			Help: "Entries evicted from a capacity-limited memo cache.",
		},
		[]string{"cache"},
	)

	cacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "txfib_memo_unpinned_entries",
			Help: "Unpinned entries currently held by a memo cache.",
		},
		[]string{"cache"},
	)
)

type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	size      prometheus.Gauge
}

func metricsFor(name string) *cacheMetrics {
	return &cacheMetrics{
		hits:      cacheLookups.WithLabelValues(name, "hit"),
		misses:    cacheLookups.WithLabelValues(name, "miss"),
		evictions: cacheEvictions.WithLabelValues(name),
		size:      cacheSize.WithLabelValues(name),
	}
}
