package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"newnan/cbfirewall/pkg/audit/recorder"
	"newnan/cbfirewall/pkg/config"
)

// AuditMetrics tracks the audit log.
//
// Metrics:
//   - cbfirewall_audit_pruned_total: Records removed by retention, by phase
//   - cbfirewall_audit_records_total: Recorder outcomes (written, dropped, failed, skipped)
//   - cbfirewall_audit_pending_records: Records waiting in the recorder buffer
type AuditMetrics struct {
	cfg      config.MetricsConfig
	registry prometheus.Registerer
	pruned   *prometheus.CounterVec
}

// NewAuditMetrics creates and registers audit metrics with the provided registry.
func NewAuditMetrics(cfg config.MetricsConfig, registry prometheus.Registerer) *AuditMetrics {
	am := &AuditMetrics{
		cfg:      cfg,
		registry: registry,
		pruned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "audit_pruned_total",
				Help:      "Total number of audit records removed by retention",
			},
			[]string{"phase"},
		),
	}

	registry.MustRegister(am.pruned)
	return am
}

// RecordPruned records one retention run.
func (am *AuditMetrics) RecordPruned(byAge, byCount int64) {
	am.pruned.WithLabelValues("age").Add(float64(byAge))
	am.pruned.WithLabelValues("count").Add(float64(byCount))
}

// ObserveRecorder exports the counters of rec. It may be called once.
func (am *AuditMetrics) ObserveRecorder(rec *recorder.Recorder) error {
	outcome := func(name string, value func(recorder.Stats) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace:   am.cfg.Namespace,
				Name:        "audit_records_total",
				Help:        "Total number of audit records by recorder outcome",
				ConstLabels: prometheus.Labels{"outcome": name},
			},
			func() float64 { return float64(value(rec.Stats())) },
		)
	}

	collectors := []prometheus.Collector{
		outcome("written", func(s recorder.Stats) int64 { return s.Written }),
		outcome("dropped", func(s recorder.Stats) int64 { return s.Dropped }),
		outcome("failed", func(s recorder.Stats) int64 { return s.Failed }),
		outcome("skipped", func(s recorder.Stats) int64 { return s.Skipped }),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: am.cfg.Namespace,
				Name:      "audit_pending_records",
				Help:      "Number of audit records waiting in the recorder buffer",
			},
			func() float64 { return float64(rec.Stats().Pending) },
		),
	}

	for _, c := range collectors {
		if err := am.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}
