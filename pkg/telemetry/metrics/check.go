package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"newnan/cbfirewall/pkg/config"
)

// CheckMetrics tracks command checks.
//
// Metrics:
//   - cbfirewall_checks_total: Checks by decision and reason
//   - cbfirewall_check_duration_seconds: Check latency by decision
//   - cbfirewall_blocked_commands_total: Blocked checks by command name
type CheckMetrics struct {
	checksTotal   *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	blockedTotal  *prometheus.CounterVec
}

// NewCheckMetrics creates and registers check metrics with the provided registry.
func NewCheckMetrics(cfg config.MetricsConfig, registry prometheus.Registerer) *CheckMetrics {
	cm := &CheckMetrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "checks_total",
				Help:      "Total number of command checks",
			},
			[]string{"decision", "reason"},
		),

		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "check_duration_seconds",
				Help:      "Duration of command checks in seconds",
				Buckets:   cfg.CheckDurationBuckets,
			},
			[]string{"decision"},
		),

		blockedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "blocked_commands_total",
				Help:      "Total number of blocked commands by command name",
			},
			[]string{"command"},
		),
	}

	registry.MustRegister(
		cm.checksTotal,
		cm.checkDuration,
		cm.blockedTotal,
	)

	return cm
}

// RecordCheck records one check.
func (cm *CheckMetrics) RecordCheck(command string, allowed bool, reason string, duration time.Duration) {
	decision := decisionLabel(allowed)
	cm.checksTotal.WithLabelValues(decision, reason).Inc()
	cm.checkDuration.WithLabelValues(decision).Observe(duration.Seconds())
	if !allowed {
		cm.blockedTotal.WithLabelValues(command).Inc()
	}
}

func decisionLabel(allowed bool) string {
	if allowed {
		return "allow"
	}
	return "block"
}
