// Package telemetry groups the observability packages of the firewall.
//
//   - logging: slog logger construction and context attributes
//   - metrics: Prometheus collectors for checks, rules, audit and HTTP
//   - tracing: OpenTelemetry tracer with OTLP gRPC export
//   - health: liveness and readiness endpoints
//
// Each subpackage is configured from one field of config.TelemetryConfig
// and wired together by the serve command.
package telemetry
