// Package observability provides production-grade observability infrastructure
// including structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// This package centralizes observability concerns to enable:
//   - Structured logging shared by every binary
//   - Prometheus metrics for the watch pipeline and its endpoints
//   - Trace propagation on the operational HTTP surface
//   - SLO tracking for the scheduled watch cycles
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//   - slo: Service level objective targets and the cycle recorder
//   - tracing: OpenTelemetry tracing integration
//
// Example usage:
//
//	import (
//	    "chainpulse/internal/observability/logging"
//	    "chainpulse/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("watcher started")
//
//	    metrics.RecordChainEvent("large_transfer")
//	}
package observability
