// Package tracing provides OpenTelemetry tracing for the firewall.
//
// New builds a Tracer from config.TracingConfig. When tracing is disabled
// the tracer is a noop and spans cost almost nothing. When enabled, spans
// are batched to an OTLP gRPC collector:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    sampler: ratio
//	    sample_ratio: 0.1
//	    endpoint: localhost:4317
//	    insecure: true
//
// The engine opens a "firewall.check" span per command and a
// "firewall.reload" span per rule reload. The HTTP server wraps each route
// with HTTPMiddleware, which continues W3C trace context sent by the
// caller.
//
// Samplers are wrapped in ParentBased, so an upstream sampling decision is
// always respected.
package tracing
