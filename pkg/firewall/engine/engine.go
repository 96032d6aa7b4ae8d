package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"newnan/cbfirewall/pkg/audit"
	"newnan/cbfirewall/pkg/config"
	"newnan/cbfirewall/pkg/firewall/trie"
	"newnan/cbfirewall/pkg/firewall/validate"
	"newnan/cbfirewall/pkg/rules"
	"newnan/cbfirewall/pkg/telemetry/tracing"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder sends every decision to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithMetrics reports checks and reloads to m.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer wraps every check and reload in a span.
func WithTracer(t Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// Engine owns the live rule set and decides commands against it.
//
// Check is safe for concurrent use and may run while Reload swaps the rules;
// each check sees either the old or the new rule set.
type Engine struct {
	config   config.FirewallConfig
	source   rules.Source
	trie     *trie.Trie
	builder  *rules.Builder
	recorder Recorder
	metrics  Metrics
	tracer   Tracer
	logger   *slog.Logger

	enabled atomic.Bool

	// reloadMu serializes reloads
	reloadMu   sync.Mutex
	lastReload atomic.Int64
	reloads    atomic.Int64

	checked    atomic.Int64
	allowed    atomic.Int64
	blocked    atomic.Int64
	checkNanos atomic.Int64
	top        *commandCounter
	commands   *commandCounter
}

// NewEngine creates an engine and loads the initial rule set from source.
// A nil source uses the default rule set built from the firewall whitelist.
func NewEngine(cfg config.FirewallConfig, source rules.Source, opts ...Option) (*Engine, error) {
	if source == nil {
		source = rules.NewDefaultSource()
	}

	e := &Engine{
		config:   cfg,
		source:   source,
		trie:     trie.New(),
		tracer:   noop.NewTracerProvider().Tracer(""),
		logger:   slog.Default(),
		top:      newCommandCounter(maxTrackedCommands),
		commands: newCommandCounter(maxTrackedCommands),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "firewall.engine")
	e.builder = rules.NewBuilder(cfg, e.trie)
	e.enabled.Store(cfg.Enabled)

	if err := e.Reload(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to load initial rules: %w", err)
	}

	e.logger.Info("firewall engine initialized",
		"enabled", cfg.Enabled,
		"source", source.Name(),
		"rules", e.trie.RuleCount(),
	)
	return e, nil
}

// Check decides a command. The error is non-nil only when ctx is already
// done; a rejected command is a Decision with Allowed false.
func (e *Engine) Check(ctx context.Context, req Request) (*Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	command := normalizeCommand(req.Command)

	ctx, span := e.tracer.Start(ctx, tracing.SpanCheck,
		trace.WithSpanKind(trace.SpanKindInternal),
		tracing.CheckStartAttributes(req.Source, commandName(command)),
	)
	defer span.End()

	start := time.Now()
	decision := &Decision{
		ID:        uuid.New().String(),
		Command:   command,
		Source:    req.Source,
		Timestamp: start.UTC(),
	}

	if !e.enabled.Load() {
		decision.Allowed = true
		decision.Reason = ReasonDisabled
	} else {
		result := e.trie.Match(ctx, command)
		decision.Allowed = result.Allowed
		decision.Reason = string(result.Reason)
		decision.Prefix = result.Prefix
		decision.Validator = result.Validator
		decision.DestroyBlock = !result.Allowed && e.config.DestroyBlockedCommandBlocks
	}
	decision.Duration = time.Since(start)

	tracing.SetDecisionAttributes(span, decision.Allowed, decision.Reason, decision.Rule(), decision.Validator)
	tracing.SetStatus(span, nil)

	e.observe(ctx, req, decision)
	return decision, nil
}

// IsCommandSafe reports whether command is allowed.
func (e *Engine) IsCommandSafe(ctx context.Context, command string) bool {
	d, err := e.Check(ctx, Request{Command: command})
	return err == nil && d.Allowed
}

// IsCommandSafeContext checks a command against the rules without touching
// the engine counters or the audit log. It makes the engine usable as a
// validate.CommandChecker.
func (e *Engine) IsCommandSafeContext(ctx context.Context, command string) bool {
	if !e.enabled.Load() {
		return true
	}
	return e.trie.IsCommandSafeContext(ctx, normalizeCommand(command))
}

func (e *Engine) observe(ctx context.Context, req Request, d *Decision) {
	e.checked.Add(1)
	e.checkNanos.Add(int64(d.Duration))
	name := commandName(d.Command)
	e.commands.Inc(name)
	if d.Allowed {
		e.allowed.Add(1)
		e.logger.DebugContext(ctx, "command allowed",
			"source", d.Source,
			"command", d.Command,
			"reason", d.Reason,
		)
	} else {
		e.blocked.Add(1)
		e.top.Inc(name)
		e.logger.WarnContext(ctx, "command blocked",
			"source", d.Source,
			"world", req.World,
			"command", d.Command,
			"reason", d.Reason,
			"validator", d.Validator,
		)
	}

	if t := e.config.SlowCheckThreshold; t > 0 && d.Duration > t {
		e.logger.WarnContext(ctx, "slow command check",
			"command", d.Command,
			"duration_ms", d.Duration.Milliseconds(),
			"threshold_ms", t.Milliseconds(),
		)
	}

	if e.metrics != nil {
		e.metrics.RecordCheck(name, d.Allowed, d.Reason, d.Duration)
	}

	if e.recorder != nil {
		record := &audit.Record{
			ID:        d.ID,
			Timestamp: d.Timestamp,
			Source:    d.Source,
			World:     req.World,
			Position:  req.Position,
			Command:   d.Command,
			Allowed:   d.Allowed,
			Reason:    d.Reason,
			Rule:      d.Rule(),
			Validator: d.Validator,
			Duration:  d.Duration,
		}
		// Audit failures never change the verdict
		if err := e.recorder.Record(ctx, record); err != nil {
			e.logger.ErrorContext(ctx, "failed to record decision", "id", d.ID, "error", err)
		}
	}
}

// Reload loads the rule set from the source and swaps it in. On error the
// current rules stay live.
func (e *Engine) Reload(ctx context.Context) error {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	ctx, span := e.tracer.Start(ctx, tracing.SpanReload,
		trace.WithAttributes(attribute.String(tracing.AttrRulesSource, e.source.Name())),
	)
	defer span.End()

	start := time.Now()
	loaded, err := e.source.Load(ctx, e.builder)
	if err == nil {
		err = e.trie.Replace(loaded)
	}
	if err != nil {
		tracing.SetError(span, err)
		tracing.SetStatus(span, err)
		if e.metrics != nil {
			e.metrics.RecordReload(false, e.trie.RuleCount())
		}
		e.logger.Error("rule reload failed, keeping current rules",
			"source", e.source.Name(),
			"error", err,
		)
		return err
	}

	count := e.trie.RuleCount()
	e.reloads.Add(1)
	e.lastReload.Store(time.Now().UnixNano())
	tracing.SetReloadAttributes(span, count)
	tracing.SetStatus(span, nil)
	if e.metrics != nil {
		e.metrics.RecordReload(true, count)
	}

	e.logger.Info("rules reloaded",
		"source", e.source.Name(),
		"rules", count,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Enabled reports whether the firewall enforces its rules.
func (e *Engine) Enabled() bool {
	return e.enabled.Load()
}

// SetEnabled switches enforcement on or off. While off every command is
// allowed with ReasonDisabled.
func (e *Engine) SetEnabled(enabled bool) {
	if e.enabled.Swap(enabled) != enabled {
		e.logger.Info("firewall toggled", "enabled", enabled)
	}
}

// Ready reports whether the engine is enforcing a non-empty rule set.
func (e *Engine) Ready(ctx context.Context) error {
	if !e.enabled.Load() {
		return ErrDisabled
	}
	if e.trie.IsEmpty() {
		return ErrNoRules
	}
	return nil
}

// Rules returns every live rule as a space separated string, sorted.
func (e *Engine) Rules() []string {
	return e.trie.AllCommands()
}

// Trie returns the live trie.
func (e *Engine) Trie() *trie.Trie {
	return e.trie
}

// Source returns the rule source.
func (e *Engine) Source() rules.Source {
	return e.source
}

// Stats returns a snapshot of all counters.
func (e *Engine) Stats() Stats {
	stats := Stats{
		Enabled:     e.enabled.Load(),
		Source:      e.source.Name(),
		Checked:     e.checked.Load(),
		Allowed:     e.allowed.Load(),
		Blocked:     e.blocked.Load(),
		TopBlocked:  e.top.Top(topLimit),
		TopCommands: e.commands.Top(topLimit),
		Reloads:     e.reloads.Load(),
		Trie:        e.trie.Statistics(),
		Validators:  []ValidatorStats{},
	}
	if ns := e.lastReload.Load(); ns != 0 {
		stats.LastReload = time.Unix(0, ns).UTC()
	}
	if stats.Checked > 0 {
		stats.BlockRate = float64(stats.Blocked) / float64(stats.Checked)
		stats.AvgCheckDuration = time.Duration(e.checkNanos.Load() / stats.Checked)
	}

	live := e.trie.Rules()
	stats.Rules = len(live)
	for _, r := range live {
		if sp, ok := r.Validator.(validate.StatsProvider); ok {
			stats.Validators = append(stats.Validators, ValidatorStats{
				Rule:  joinTokens(r.Tokens),
				Stats: sp.Stats(),
			})
		}
	}
	return stats
}

// ResetStatistics zeroes the engine, trie and validator counters.
func (e *Engine) ResetStatistics() {
	e.checked.Store(0)
	e.allowed.Store(0)
	e.blocked.Store(0)
	e.checkNanos.Store(0)
	e.top.Reset()
	e.commands.Reset()
	e.trie.ResetStatistics()
	for _, r := range e.trie.Rules() {
		if sp, ok := r.Validator.(validate.StatsProvider); ok {
			sp.ResetStatistics()
		}
	}
}

// normalizeCommand trims whitespace and one leading slash.
func normalizeCommand(command string) string {
	command = strings.TrimSpace(command)
	command = strings.TrimPrefix(command, "/")
	return strings.TrimSpace(command)
}

// commandName returns the lowercased first token of command.
func commandName(command string) string {
	name, _, _ := strings.Cut(command, " ")
	if i := strings.IndexAny(name, "\t\n\r"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

func joinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}
