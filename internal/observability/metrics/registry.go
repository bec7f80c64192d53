// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track the operational endpoints (metrics, health, status)
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsInFlight tracks requests currently being served
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Chain metrics track what the watcher observes on the chain
var (
	// GasPriceGwei tracks the most recently observed gas price
	GasPriceGwei = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chain_gas_price_gwei",
			Help: "Gas price from the most recent observation, in gwei",
		},
	)

	// ChainEventsTotal counts observed noteworthy events by kind
	ChainEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chain_events_total",
			Help: "Total number of noteworthy chain events observed",
		},
		[]string{"kind"},
	)

	// ScanWindowBlocks measures the width of the block window scanned per cycle
	ScanWindowBlocks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chain_scan_window_blocks",
			Help:    "Width of the block window scanned per watch cycle",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// EnrichmentsTotal counts explorer metadata lookups by result
	EnrichmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chain_enrichments_total",
			Help: "Total number of explorer metadata lookups",
		},
		[]string{"result"}, // result: success, failure
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
