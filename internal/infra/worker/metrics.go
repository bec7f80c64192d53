package worker

import (
	"chainpulse/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WatcherMetrics provides Prometheus metrics for the watcher component.
// It embeds the standard ConfigMetrics for configuration monitoring and
// adds watcher-specific metrics for cycle execution tracking.
//
// Embedded metrics (from ConfigMetrics):
//   - watcher_config_load_timestamp: Unix timestamp of last configuration load
//   - watcher_config_validation_errors_total: Total validation errors by field
//   - watcher_config_fallbacks_total: Total fallback operations by field
//   - watcher_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Watcher-specific metrics:
//   - watcher_cycle_runs_total: Total watch cycles by status (success/failure/skipped_degraded)
//   - watcher_cycle_duration_seconds: Duration histogram of watch cycle execution
//   - watcher_events_observed_total: Total chain events observed across all cycles
//   - watcher_posts_published_total: Total posts published across all cycles
//   - watcher_cycle_last_success_timestamp: Unix timestamp of last successful cycle
//   - watcher_last_observed_block: Highest block number seen so far
//
// Example usage:
//
//	metrics := NewWatcherMetrics()
//	metrics.MustRegister()
//
//	start := time.Now()
//	stats, err := watcher.RunCycle(ctx)
//	metrics.RecordCycleDuration(time.Since(start).Seconds())
//	if err != nil {
//	    metrics.RecordCycleRun("failure")
//	} else {
//	    metrics.RecordCycleRun("success")
//	    metrics.RecordEventsObserved(stats.EventsObserved)
//	    metrics.RecordLastSuccess()
//	}
type WatcherMetrics struct {
	// Embedded configuration metrics
	*config.ConfigMetrics

	// CycleRunsTotal counts watch cycle runs.
	// Type: Counter
	// Labels: status (success, failure, skipped_degraded)
	// Usage: Increment once per cycle with its outcome
	CycleRunsTotal *prometheus.CounterVec

	// CycleDurationSeconds measures the duration of watch cycle execution.
	// Type: Histogram
	// Buckets: 100ms to 2m, covering a healthy cycle through a timed-out one
	CycleDurationSeconds prometheus.Histogram

	// EventsObservedTotal counts chain events observed across all cycles.
	// Type: Counter
	// Usage: Add the number of decoded log events after each cycle
	EventsObservedTotal prometheus.Counter

	// PostsPublishedTotal counts posts published across all cycles.
	// Type: Counter
	// Usage: Increment once per post accepted by the platform
	PostsPublishedTotal prometheus.Counter

	// CycleLastSuccessTimestamp records the Unix timestamp of the last
	// successful cycle.
	// Type: Gauge
	CycleLastSuccessTimestamp prometheus.Gauge

	// LastObservedBlock records the highest block number seen so far.
	// Type: Gauge
	// Usage: Set after each successful block number read; a stalled value
	// while cycles keep succeeding points at the RPC endpoint, not us
	LastObservedBlock prometheus.Gauge
}

// NewWatcherMetrics creates a WatcherMetrics instance with all metrics
// initialized and registered via promauto.
//
// Example:
//
//	metrics := NewWatcherMetrics()
//	metrics.MustRegister()
func NewWatcherMetrics() *WatcherMetrics {
	return &WatcherMetrics{
		ConfigMetrics: config.NewConfigMetrics("watcher"),

		CycleRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watcher_cycle_runs_total",
			Help: "Total number of watch cycles by status (success/failure/skipped_degraded)",
		}, []string{"status"}),

		CycleDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "watcher_cycle_duration_seconds",
			Help:    "Duration of watch cycle execution in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}),

		EventsObservedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watcher_events_observed_total",
			Help: "Total number of chain events observed across all watch cycles",
		}),

		PostsPublishedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watcher_posts_published_total",
			Help: "Total number of posts published across all watch cycles",
		}),

		CycleLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "watcher_cycle_last_success_timestamp",
			Help: "Unix timestamp of the last successful watch cycle",
		}),

		LastObservedBlock: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "watcher_last_observed_block",
			Help: "Highest block number observed so far",
		}),
	}
}

// MustRegister is a no-op method for API compatibility.
// Metrics are automatically registered via promauto when created in
// NewWatcherMetrics; this explicit call keeps the initialization pattern
// uniform across components.
func (m *WatcherMetrics) MustRegister() {
	// No-op: metrics are auto-registered via promauto
}

// RecordCycleRun increments the cycle run counter for the given status.
// Status should be "success", "failure", or "skipped_degraded".
//
// Example:
//
//	if monitorDegraded {
//	    metrics.RecordCycleRun("skipped_degraded")
//	}
func (m *WatcherMetrics) RecordCycleRun(status string) {
	m.CycleRunsTotal.WithLabelValues(status).Inc()
}

// RecordCycleDuration observes the duration of a watch cycle in seconds.
//
// Example:
//
//	start := time.Now()
//	// ... run cycle ...
//	metrics.RecordCycleDuration(time.Since(start).Seconds())
func (m *WatcherMetrics) RecordCycleDuration(seconds float64) {
	m.CycleDurationSeconds.Observe(seconds)
}

// RecordEventsObserved adds the number of chain events observed in a
// cycle to the running total.
func (m *WatcherMetrics) RecordEventsObserved(count int) {
	m.EventsObservedTotal.Add(float64(count))
}

// RecordPostPublished increments the published post counter.
func (m *WatcherMetrics) RecordPostPublished() {
	m.PostsPublishedTotal.Inc()
}

// RecordLastSuccess records the current time as the last successful
// cycle completion.
func (m *WatcherMetrics) RecordLastSuccess() {
	m.CycleLastSuccessTimestamp.SetToCurrentTime()
}

// SetLastObservedBlock records the highest block number seen.
func (m *WatcherMetrics) SetLastObservedBlock(block uint64) {
	m.LastObservedBlock.Set(float64(block))
}
