package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"newnan/cbfirewall/pkg/audit"
	"newnan/cbfirewall/pkg/config"
)

// Config contains configuration for the audit recorder.
type Config struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds both the wait for buffer space and each storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// RecordAllowed records allowed commands as well as blocked ones.
	// Default: false
	RecordAllowed bool
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() Config {
	return Config{
		AsyncBuffer:  config.DefaultAuditAsyncBuffer,
		WriteTimeout: config.DefaultAuditWriteTimeout,
	}
}

// FromAuditConfig extracts the recorder settings from the audit section.
func FromAuditConfig(cfg config.AuditConfig) Config {
	return Config{
		AsyncBuffer:   cfg.AsyncBuffer,
		WriteTimeout:  cfg.WriteTimeout,
		RecordAllowed: cfg.RecordAllowed,
	}
}

// Stats are running counters of a Recorder.
type Stats struct {
	Enqueued int64 `json:"enqueued"`
	Written  int64 `json:"written"`
	Skipped  int64 `json:"skipped"`
	Dropped  int64 `json:"dropped"`
	Failed   int64 `json:"failed"`
	Pending  int   `json:"pending"`
}

// Recorder writes audit records to storage on a background goroutine so
// that firewall checks never wait on the database.
type Recorder struct {
	storage    audit.Storage
	config     Config
	recordChan chan *audit.Record
	done       chan struct{}
	wg         sync.WaitGroup
	mu         sync.RWMutex
	closed     bool
	closeOnce  sync.Once
	logger     *slog.Logger

	enqueued atomic.Int64
	written  atomic.Int64
	skipped  atomic.Int64
	dropped  atomic.Int64
	failed   atomic.Int64
}

// NewRecorder creates a recorder and starts its worker.
func NewRecorder(storage audit.Storage, cfg Config, logger *slog.Logger) *Recorder {
	if cfg.AsyncBuffer <= 0 {
		cfg.AsyncBuffer = config.DefaultAuditAsyncBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = config.DefaultAuditWriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage:    storage,
		config:     cfg,
		recordChan: make(chan *audit.Record, cfg.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     logger.With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
		"record_allowed", cfg.RecordAllowed,
	)

	return r
}

// Record enqueues a record for writing. A missing ID or timestamp is filled
// in. Allowed records are skipped unless RecordAllowed is set.
//
// Record returns immediately unless the buffer is full, in which case it
// waits up to WriteTimeout before dropping the record.
func (r *Recorder) Record(ctx context.Context, record *audit.Record) error {
	if record.Allowed && !r.config.RecordAllowed {
		r.skipped.Add(1)
		return nil
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return audit.NewRecorderError(record.ID, audit.ErrClosed)
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.recordChan <- record:
		r.enqueued.Add(1)
		return nil
	case <-timer.C:
		r.dropped.Add(1)
		r.logger.Error("audit channel full, dropping record",
			"record_id", record.ID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return audit.NewRecorderError(record.ID, context.DeadlineExceeded)
	case <-ctx.Done():
		r.dropped.Add(1)
		return audit.NewRecorderError(record.ID, ctx.Err())
	case <-r.done:
		r.dropped.Add(1)
		r.logger.Warn("recorder shutting down, dropping record", "record_id", record.ID)
		return audit.NewRecorderError(record.ID, audit.ErrClosed)
	}
}

// Stats returns a snapshot of the recorder counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Enqueued: r.enqueued.Load(),
		Written:  r.written.Load(),
		Skipped:  r.skipped.Load(),
		Dropped:  r.dropped.Load(),
		Failed:   r.failed.Load(),
		Pending:  len(r.recordChan),
	}
}

// Close stops accepting records, writes everything already queued and waits
// for the worker to exit. It does not close the storage.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down audit recorder", "pending_count", len(r.recordChan))

		// Wake senders blocked on a full buffer
		close(r.done)

		r.mu.Lock()
		r.closed = true
		close(r.recordChan)
		r.mu.Unlock()

		r.wg.Wait()
		r.logger.Info("audit recorder shut down complete")
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for record := range r.recordChan {
		r.writeRecord(record)
	}
}

func (r *Recorder) writeRecord(record *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.failed.Add(1)
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"error", err,
		)
		return
	}
	r.written.Add(1)

	duration := time.Since(start)
	r.logger.Debug("audit record written",
		"record_id", record.ID,
		"allowed", record.Allowed,
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}
