package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by tier.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logistics_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"tier"}, // "primary", "prefetch", "offline"
	)

	// CacheMisses tracks cache misses by tier.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logistics_cache_misses_total",
			Help: "Total number of response cache misses",
		},
		[]string{"tier"},
	)

	// CacheWrites tracks cache writes by tier.
	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logistics_cache_writes_total",
			Help: "Total number of response cache writes",
		},
		[]string{"tier"},
	)

	// CacheEvictions tracks LRU evictions by tier.
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logistics_cache_evictions_total",
			Help: "Total number of entries evicted to make room for new keys",
		},
		[]string{"tier"},
	)

	// CacheInvalidatedEntries tracks entries removed by pattern invalidation.
	CacheInvalidatedEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logistics_cache_invalidated_entries_total",
			Help: "Total number of entries removed by explicit invalidation",
		},
	)

	// CacheEntries tracks the current entry count by tier.
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logistics_cache_entries",
			Help: "Current number of entries held per cache tier",
		},
		[]string{"tier"},
	)
)
