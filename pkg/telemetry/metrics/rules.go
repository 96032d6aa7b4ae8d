package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"newnan/cbfirewall/pkg/config"
)

// RuleMetrics tracks the live rule set.
//
// Metrics:
//   - cbfirewall_rules_loaded: Number of rules in the live rule set
//   - cbfirewall_rule_reloads_total: Reload attempts by result
//   - cbfirewall_rules_last_reload_timestamp_seconds: Time of the last successful reload
type RuleMetrics struct {
	loaded     prometheus.Gauge
	reloads    *prometheus.CounterVec
	lastReload prometheus.Gauge
}

// NewRuleMetrics creates and registers rule metrics with the provided registry.
func NewRuleMetrics(cfg config.MetricsConfig, registry prometheus.Registerer) *RuleMetrics {
	rm := &RuleMetrics{
		loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "rules_loaded",
			Help:      "Number of rules in the live rule set",
		}),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rule_reloads_total",
				Help:      "Total number of rule reloads by result",
			},
			[]string{"result"},
		),
		lastReload: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "rules_last_reload_timestamp_seconds",
			Help:      "Unix time of the last successful rule reload",
		}),
	}

	registry.MustRegister(rm.loaded, rm.reloads, rm.lastReload)
	return rm
}

// RecordReload records one reload attempt. ruleCount is the size of the live
// rule set afterwards.
func (rm *RuleMetrics) RecordReload(success bool, ruleCount int, at time.Time) {
	rm.loaded.Set(float64(ruleCount))
	if success {
		rm.reloads.WithLabelValues("success").Inc()
		rm.lastReload.Set(float64(at.Unix()))
	} else {
		rm.reloads.WithLabelValues("error").Inc()
	}
}
