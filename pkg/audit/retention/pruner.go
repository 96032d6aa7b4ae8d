package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"newnan/cbfirewall/pkg/audit"
	"newnan/cbfirewall/pkg/config"
	"newnan/cbfirewall/pkg/telemetry/tracing"
)

// deleteBatch bounds the number of IDs in one Delete call.
const deleteBatch = 500

// Result reports what a pruning run removed.
type Result struct {
	ByAge   int64 `json:"by_age"`
	ByCount int64 `json:"by_count"`
}

// Total returns the number of records removed.
func (r Result) Total() int64 {
	return r.ByAge + r.ByCount
}

// Metrics receives the result of every successful pruning run.
type Metrics interface {
	RecordPruned(byAge, byCount int64)
}

// Tracer starts spans. Both trace.Tracer and *tracing.Tracer satisfy it.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
}

// Option configures a Pruner.
type Option func(*Pruner)

// WithMetrics reports pruning results to m.
func WithMetrics(m Metrics) Option {
	return func(p *Pruner) { p.metrics = m }
}

// WithTracer wraps every pruning run in a span.
func WithTracer(t Tracer) Option {
	return func(p *Pruner) {
		if t != nil {
			p.tracer = t
		}
	}
}

// Pruner enforces retention limits on audit records.
type Pruner struct {
	storage audit.Storage
	config  config.RetentionConfig
	logger  *slog.Logger
	metrics Metrics
	tracer  Tracer
	now     func() time.Time
}

// NewPruner creates a new retention pruner.
func NewPruner(storage audit.Storage, cfg config.RetentionConfig, logger *slog.Logger, opts ...Option) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pruner{
		storage: storage,
		config:  cfg,
		logger:  logger.With("component", "audit.retention"),
		tracer:  noop.NewTracerProvider().Tracer(""),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the retention limits.
func (p *Pruner) Config() config.RetentionConfig {
	return p.config
}

// Prune deletes records older than MaxAge, then deletes the oldest records
// beyond MaxRecords. A non-positive MaxAge or MaxRecords disables that phase.
func (p *Pruner) Prune(ctx context.Context) (Result, error) {
	ctx, span := p.tracer.Start(ctx, tracing.SpanPrune)
	defer span.End()

	result, err := p.prune(ctx)
	tracing.SetPruneAttributes(span, result.ByAge, result.ByCount)
	tracing.SetStatus(span, err)
	if err != nil {
		tracing.SetError(span, err)
		return result, err
	}
	if p.metrics != nil {
		p.metrics.RecordPruned(result.ByAge, result.ByCount)
	}
	return result, nil
}

func (p *Pruner) prune(ctx context.Context) (Result, error) {
	var result Result

	if p.config.MaxAge > 0 {
		deleted, err := p.storage.Delete(ctx, audit.OlderThan(p.config.MaxAge, p.now()))
		if err != nil {
			return result, fmt.Errorf("prune by age failed: %w", err)
		}
		result.ByAge = deleted
		p.logger.Debug("pruned records by age",
			"deleted_count", deleted,
			"max_age", p.config.MaxAge,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return result, fmt.Errorf("prune by count failed: %w", err)
		}
		result.ByCount = deleted
	}

	if result.Total() == 0 {
		p.logger.Debug("no records pruned",
			"max_age", p.config.MaxAge,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Info("audit pruning completed",
			"by_age", result.ByAge,
			"by_count", result.ByCount,
			"max_age", p.config.MaxAge,
			"max_records", p.config.MaxRecords,
		)
	}

	return result, nil
}

// pruneByCount deletes the oldest records until at most MaxRecords remain.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &audit.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}

	excess := count - int64(p.config.MaxRecords)
	if excess <= 0 {
		return 0, nil
	}

	p.logger.Info("record count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", excess,
	)

	var deleted int64
	for excess > 0 {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}

		batch := int(min(excess, deleteBatch))
		oldest, err := p.storage.Query(ctx, &audit.Query{SortOrder: audit.SortAsc, Limit: batch})
		if err != nil {
			return deleted, fmt.Errorf("failed to query oldest records: %w", err)
		}
		if len(oldest) == 0 {
			break
		}

		ids := make([]string, len(oldest))
		for i, r := range oldest {
			ids[i] = r.ID
		}
		n, err := p.storage.Delete(ctx, &audit.Query{IDs: ids})
		if err != nil {
			return deleted, fmt.Errorf("delete failed: %w", err)
		}
		deleted += n
		excess -= int64(len(oldest))
	}

	return deleted, nil
}
