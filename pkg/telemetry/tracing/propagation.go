package tracing

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Header names set on responses by HTTPMiddleware.
const (
	HeaderTraceID = "X-Trace-ID"
	HeaderSpanID  = "X-Span-ID"
)

// Propagator returns the global text map propagator.
func Propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// Extract returns ctx carrying the trace context from the W3C traceparent
// and tracestate headers. Without those headers ctx is returned unchanged.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject writes the trace context of ctx into headers.
func Inject(ctx context.Context, headers http.Header) {
	Propagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// HTTPMiddleware starts a server span for every request, continuing any
// trace context the caller sent. The trace and span IDs are echoed in the
// X-Trace-ID and X-Span-ID response headers so a plugin can correlate a
// verdict with the trace.
func HTTPMiddleware(tracer *Tracer, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := Extract(r.Context(), r.Header)
			ctx, span := tracer.Start(ctx, "http "+route)
			defer span.End()

			SetHTTPAttributes(span, r.Method, route, r.Header.Get("X-Request-ID"))
			if sc := span.SpanContext(); sc.IsValid() {
				w.Header().Set(HeaderTraceID, sc.TraceID().String())
				w.Header().Set(HeaderSpanID, sc.SpanID().String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ValidateTraceParent reports whether traceparent is a well formed W3C
// traceparent header: version-trace_id-parent_id-trace_flags, lowercase
// or uppercase hex, with non-zero trace and parent IDs.
//
// Example: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
func ValidateTraceParent(traceparent string) bool {
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return false
	}

	for i, want := range []int{2, 32, 16, 2} {
		if len(parts[i]) != want || !isHexString(parts[i]) {
			return false
		}
	}

	if strings.Trim(parts[1], "0") == "" || strings.Trim(parts[2], "0") == "" {
		return false
	}
	return true
}

func isHexString(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// IsSampledFromTraceParent reports whether the sampled flag of a valid
// traceparent header is set.
func IsSampledFromTraceParent(traceparent string) bool {
	if !ValidateTraceParent(traceparent) {
		return false
	}
	flags, err := strconv.ParseUint(traceparent[len(traceparent)-2:], 16, 8)
	if err != nil {
		return false
	}
	return flags&0x01 == 0x01
}
