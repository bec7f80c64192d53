// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - HTTP request metrics for the operational endpoints (duration, count)
//   - Chain observation metrics (gas price, events by kind, scan windows)
//   - Explorer enrichment metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "chainpulse/internal/observability/metrics"
//
//	func handleEvents(events []event.ChainEvent) {
//	    for _, ev := range events {
//	        metrics.RecordChainEvent(string(ev.Kind))
//	    }
//	}
package metrics
