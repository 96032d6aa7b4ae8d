package audit

import (
	"context"
	"io"
	"time"
)

// Record is the audit trail of a single command check.
type Record struct {
	// Identity
	ID        string    `json:"id"`        // UUID v4
	Timestamp time.Time `json:"timestamp"` // When the command was checked

	// Origin
	Source   string    `json:"source"`             // Issuer, e.g. "command_block" or a player name
	World    string    `json:"world,omitempty"`    // World the command ran in
	Position *Position `json:"position,omitempty"` // Block position, if known

	// Decision
	Command   string        `json:"command"`             // Command text without the leading slash
	Allowed   bool          `json:"allowed"`             // Verdict
	Reason    string        `json:"reason"`              // Why the command was allowed or blocked
	Rule      string        `json:"rule,omitempty"`      // Matched literal prefix
	Validator string        `json:"validator,omitempty"` // Validator that decided, if any
	Duration  time.Duration `json:"duration"`            // Check latency
}

// Position is a block position in a world.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sort orders accepted in Query.SortOrder.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Query defines filter parameters for querying audit records.
type Query struct {
	// Time range
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive start time
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive end time

	// Filters
	Source  string   `json:"source,omitempty"`  // Exact source
	World   string   `json:"world,omitempty"`   // Exact world
	Allowed *bool    `json:"allowed,omitempty"` // Verdict
	Command string   `json:"command,omitempty"` // Case-insensitive substring of the command
	IDs     []string `json:"ids,omitempty"`     // Restrict to these record IDs

	// Pagination
	Limit  int `json:"limit,omitempty"`  // Max records to return
	Offset int `json:"offset,omitempty"` // Skip N records

	// Sorting by timestamp. Default "desc" (newest first).
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage defines the interface for audit storage backends.
// Implementations must be thread-safe and support concurrent access.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Get returns the record with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Query retrieves records matching the query filters.
	// Returns an empty slice if no records match.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of records matching the query filters.
	// Pagination fields are ignored.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the query filters and returns the
	// number deleted. Pagination fields are ignored.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the storage backend.
	Close() error
}

// Exporter writes audit records in some output format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
