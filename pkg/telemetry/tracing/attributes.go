package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanCheck  = "firewall.check"
	SpanReload = "firewall.reload"
	SpanPrune  = "audit.prune"
)

// Attribute keys. Firewall attributes use the "firewall." namespace;
// HTTP attributes follow the OpenTelemetry semantic conventions.
const (
	AttrSource      = "firewall.source"
	AttrCommandName = "firewall.command.name"
	AttrAllowed     = "firewall.allowed"
	AttrReason      = "firewall.reason"
	AttrValidator   = "firewall.validator"
	AttrRule        = "firewall.rule"

	AttrRulesSource = "firewall.rules.source"
	AttrRulesCount  = "firewall.rules.count"

	AttrPrunedByAge   = "audit.pruned.age"
	AttrPrunedByCount = "audit.pruned.count"

	AttrRequestID    = "http.request_id"
	AttrHTTPMethod   = "http.method"
	AttrHTTPRoute    = "http.route"
	AttrHTTPStatus   = "http.status_code"
	AttrErrorMessage = "error.message"
)

// CheckStartAttributes returns the attributes known when a check starts.
func CheckStartAttributes(source, commandName string) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String(AttrSource, source),
		attribute.String(AttrCommandName, commandName),
	)
}

// SetDecisionAttributes records the outcome of a check. Empty rule and
// validator names are omitted.
func SetDecisionAttributes(span trace.Span, allowed bool, reason, rule, validator string) {
	attrs := []attribute.KeyValue{
		attribute.Bool(AttrAllowed, allowed),
		attribute.String(AttrReason, reason),
	}
	if rule != "" {
		attrs = append(attrs, attribute.String(AttrRule, rule))
	}
	if validator != "" {
		attrs = append(attrs, attribute.String(AttrValidator, validator))
	}
	span.SetAttributes(attrs...)
}

// SetReloadAttributes records the rule count after a reload.
func SetReloadAttributes(span trace.Span, count int) {
	span.SetAttributes(attribute.Int(AttrRulesCount, count))
}

// SetPruneAttributes records the result of a retention run.
func SetPruneAttributes(span trace.Span, byAge, byCount int64) {
	span.SetAttributes(
		attribute.Int64(AttrPrunedByAge, byAge),
		attribute.Int64(AttrPrunedByCount, byCount),
	)
}

// SetHTTPAttributes records request attributes on a server span.
func SetHTTPAttributes(span trace.Span, method, route, requestID string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
	}
	if requestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, requestID))
	}
	span.SetAttributes(attrs...)
}

// SetHTTPStatus records the response status on a server span.
func SetHTTPStatus(span trace.Span, code int) {
	span.SetAttributes(attribute.Int(AttrHTTPStatus, code))
}
