// Package tracing provides OpenTelemetry tracing integration.
//
// The retry executor starts a span per operation, and the ops HTTP
// endpoints are wrapped with Middleware for incoming trace propagation.
// Without an SDK tracer provider installed the global tracer is a no-op,
// so production wiring stays optional: install an exporter in main when
// a collector is available.
package tracing
