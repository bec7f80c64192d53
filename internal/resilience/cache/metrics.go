package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the TTL cache
var (
	// cacheHits counts reads answered from a fresh entry.
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ttl_cache_hits_total",
			Help: "Total number of cache reads served from a fresh entry",
		},
	)

	// cacheMisses counts reads that found nothing fresh.
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ttl_cache_misses_total",
			Help: "Total number of cache reads that missed or hit an expired entry",
		},
	)

	// cacheEvictions counts removed entries by cause.
	// Labels:
	//   - reason: "expired_read" (removed during Get) or "sweep"
	cacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ttl_cache_evictions_total",
			Help: "Total number of cache entries removed",
		},
		[]string{"reason"},
	)

	// cacheEntries reports the current entry count.
	cacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ttl_cache_entries",
			Help: "Number of entries currently stored in the cache",
		},
	)
)
