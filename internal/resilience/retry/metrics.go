package retry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// retryOperations counts executor runs by final outcome.
	// Labels: endpoint, outcome (success|failed|exhausted|canceled).
	retryOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_operations_total",
			Help: "Total executor operations by final outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	// retryAttempts observes how many attempts a successful operation took.
	// Labels: endpoint.
	retryAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retry_attempts_per_operation",
			Help:    "Attempts needed per successful operation",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
		[]string{"endpoint"},
	)

	// retryWaits counts sleeps taken by the executor.
	// Labels: endpoint, phase (preemptive|backoff).
	retryWaits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_waits_total",
			Help: "Total waits taken before or between attempts",
		},
		[]string{"endpoint", "phase"},
	)

	// bestEffortOperations counts best-effort runs by final outcome.
	// Labels: endpoint, outcome (success|failed|exhausted|canceled).
	bestEffortOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "best_effort_operations_total",
			Help: "Total best-effort operations by final outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	// cacheShortCircuits counts operations answered from the TTL cache
	// without touching the endpoint. Labels: endpoint.
	cacheShortCircuits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_cache_hits_total",
			Help: "Total operations served from cache without an endpoint call",
		},
		[]string{"endpoint"},
	)
)
