package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"newnan/cbfirewall/pkg/config"
)

// HTTPMetrics tracks requests to the HTTP API.
//
// Metrics:
//   - cbfirewall_http_requests_total: Requests by handler, method and status code
//   - cbfirewall_http_request_duration_seconds: Request latency by handler
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers HTTP metrics with the provided registry.
func NewHTTPMetrics(cfg config.MetricsConfig, registry prometheus.Registerer) *HTTPMetrics {
	hm := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"handler", "method", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8), // 100µs to 1.6s
			},
			[]string{"handler"},
		),
	}

	registry.MustRegister(hm.requestsTotal, hm.requestDuration)
	return hm
}

// RecordRequest records one HTTP request.
func (hm *HTTPMetrics) RecordRequest(handler, method string, code int, duration time.Duration) {
	hm.requestsTotal.WithLabelValues(handler, method, strconv.Itoa(code)).Inc()
	hm.requestDuration.WithLabelValues(handler).Observe(duration.Seconds())
}
