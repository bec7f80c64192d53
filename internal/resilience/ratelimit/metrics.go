package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for rate limit tracking
var (
	// waitDecisions counts ShouldWait calls that required a pause.
	// Labels:
	//   - endpoint: logical endpoint key
	//   - reason: "retry_after" or "safety_margin"
	waitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_wait_decisions_total",
			Help: "Total number of wait decisions issued by the rate limit tracker",
		},
		[]string{"endpoint", "reason"},
	)

	// waitDuration tracks how long callers are told to wait.
	// Buckets cover the pre-emptive throttle range: sub-second noise up
	// to the 15-minute windows social APIs use.
	waitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rate_limit_wait_duration_seconds",
			Help:    "Wait durations issued by the rate limit tracker in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
		},
		[]string{"endpoint"},
	)

	// rateLimitErrors counts server-reported rate limit errors per endpoint.
	rateLimitErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_errors_total",
			Help: "Total number of rate limit errors reported by remote servers",
		},
		[]string{"endpoint"},
	)

	// headerParseFailures counts malformed rate-limit metadata occurrences.
	headerParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_metadata_parse_failures_total",
			Help: "Total number of malformed rate limit headers or error payloads ignored",
		},
	)

	// trackedStates reports the number of endpoints currently tracked.
	trackedStates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limit_tracked_endpoints",
			Help: "Number of endpoints with live rate limit state",
		},
	)
)
