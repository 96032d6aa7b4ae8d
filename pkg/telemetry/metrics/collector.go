package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"newnan/cbfirewall/pkg/audit/recorder"
	"newnan/cbfirewall/pkg/config"
)

// maxCommandLabels caps the distinct values of the "command" label.
const maxCommandLabels = 500

// otherLabel replaces label values beyond the cardinality limit.
const otherLabel = "other"

// Collector owns the Prometheus registry and every firewall metric. It
// implements engine.Metrics.
//
// All Record methods are no-ops when metrics are disabled in the
// configuration.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	checkMetrics *CheckMetrics
	ruleMetrics  *RuleMetrics
	auditMetrics *AuditMetrics
	httpMetrics  *HTTPMetrics

	commandLimiter *CardinalityLimiter
}

// NewCollector creates a collector. If registry is nil a new registry is
// created with the Go runtime and process collectors registered.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.CheckDurationBuckets) == 0 {
		cfg.CheckDurationBuckets = config.DefaultCheckDurationBuckets
	}

	return &Collector{
		config:         cfg,
		registry:       registry,
		checkMetrics:   NewCheckMetrics(cfg, registry),
		ruleMetrics:    NewRuleMetrics(cfg, registry),
		auditMetrics:   NewAuditMetrics(cfg, registry),
		httpMetrics:    NewHTTPMetrics(cfg, registry),
		commandLimiter: NewCardinalityLimiter(maxCommandLabels),
	}
}

// RecordCheck records a command check. Command names beyond the cardinality
// limit are counted as "other".
func (c *Collector) RecordCheck(command string, allowed bool, reason string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	if !allowed && !c.commandLimiter.Allow(command) {
		command = otherLabel
	}
	c.checkMetrics.RecordCheck(command, allowed, reason, duration)
}

// RecordReload records a rule reload.
func (c *Collector) RecordReload(success bool, ruleCount int) {
	if !c.config.Enabled {
		return
	}
	c.ruleMetrics.RecordReload(success, ruleCount, time.Now())
}

// RecordPruned records a retention run.
func (c *Collector) RecordPruned(byAge, byCount int64) {
	if !c.config.Enabled {
		return
	}
	c.auditMetrics.RecordPruned(byAge, byCount)
}

// RecordHTTPRequest records an API request.
func (c *Collector) RecordHTTPRequest(handler, method string, code int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.httpMetrics.RecordRequest(handler, method, code, duration)
}

// ObserveRecorder exports the audit recorder counters.
func (c *Collector) ObserveRecorder(rec *recorder.Recorder) error {
	if !c.config.Enabled {
		return nil
	}
	return c.auditMetrics.ObserveRecorder(rec)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of distinct label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value may be used as a label value. Known values
// are always allowed; new ones only while the limit is not reached.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	_, exists := cl.current[value]
	cl.mu.RUnlock()
	if exists {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
