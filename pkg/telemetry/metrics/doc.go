// Package metrics exposes firewall metrics to Prometheus.
//
// A Collector owns a registry and four metric families:
//
//   - checks: cbfirewall_checks_total{decision,reason},
//     cbfirewall_check_duration_seconds{decision},
//     cbfirewall_blocked_commands_total{command}
//   - rules: cbfirewall_rules_loaded, cbfirewall_rule_reloads_total{result},
//     cbfirewall_rules_last_reload_timestamp_seconds
//   - audit: cbfirewall_audit_records_total{outcome},
//     cbfirewall_audit_pending_records, cbfirewall_audit_pruned_total{phase}
//   - http: cbfirewall_http_requests_total{handler,method,code},
//     cbfirewall_http_request_duration_seconds{handler}
//
// The collector implements engine.Metrics, so it is wired in with
// engine.WithMetrics. Handler serves the registry:
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// The "command" label is capped at 500 distinct values; further command
// names are counted as "other".
package metrics
