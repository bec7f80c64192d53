package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName identifies this module's spans to the collector.
const instrumentationName = "chainpulse"

// tracer is the process-wide tracer. Without an SDK provider installed
// it is a no-op, so instrumented paths cost nearly nothing.
var tracer = otel.Tracer(instrumentationName)

// GetTracer returns the tracer used for this module's spans.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return tracer
}
