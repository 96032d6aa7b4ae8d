package engine

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"

	"newnan/cbfirewall/pkg/audit"
	"newnan/cbfirewall/pkg/firewall/trie"
	"newnan/cbfirewall/pkg/firewall/validate"
)

// ReasonDisabled is the reason given for every command while the firewall is
// switched off.
const ReasonDisabled = "firewall disabled"

var (
	// ErrDisabled is reported by Ready while the firewall is switched off.
	ErrDisabled = errors.New("firewall disabled")

	// ErrNoRules is reported by Ready when the live rule set is empty.
	ErrNoRules = errors.New("no rules loaded")
)

// Request is a command submitted for checking.
type Request struct {
	// Command is the raw command text. A leading "/" is ignored.
	Command string `json:"command"`

	// Source identifies the issuer, e.g. "command_block" or a player name.
	Source string `json:"source,omitempty"`

	// World is the world the command runs in.
	World string `json:"world,omitempty"`

	// Position is the issuing block position, if known.
	Position *audit.Position `json:"position,omitempty"`
}

// Decision is the verdict for one Request.
type Decision struct {
	ID        string        `json:"id"`
	Command   string        `json:"command"`
	Source    string        `json:"source,omitempty"`
	Allowed   bool          `json:"allowed"`
	Reason    string        `json:"reason"`
	Prefix    []string      `json:"prefix,omitempty"`
	Validator string        `json:"validator,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`

	// DestroyBlock asks the caller to remove the issuing command block.
	// Only set on blocked decisions.
	DestroyBlock bool `json:"destroy_block,omitempty"`
}

// Rule returns the matched literal prefix as a single string.
func (d *Decision) Rule() string {
	return joinTokens(d.Prefix)
}

// Recorder receives a record for every decision. Implementations decide
// what to keep.
type Recorder interface {
	Record(ctx context.Context, record *audit.Record) error
}

// Metrics receives check and reload observations.
type Metrics interface {
	RecordCheck(command string, allowed bool, reason string, duration time.Duration)
	RecordReload(success bool, ruleCount int)
}

// Tracer starts spans. Both trace.Tracer and *tracing.Tracer satisfy it.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
}

// CommandCount is a command name with the number of times it was blocked.
type CommandCount struct {
	Command string `json:"command"`
	Count   int64  `json:"count"`
}

// ValidatorStats are the statistics of the validator attached to a rule.
type ValidatorStats struct {
	Rule string `json:"rule"`
	validate.Stats
}

// Stats is a snapshot of the engine counters, the trie statistics and the
// statistics of every validator in the live rule set.
type Stats struct {
	Enabled          bool             `json:"enabled"`
	Source           string           `json:"source"`
	Rules            int              `json:"rules"`
	Checked          int64            `json:"checked"`
	Allowed          int64            `json:"allowed"`
	Blocked          int64            `json:"blocked"`
	BlockRate        float64          `json:"block_rate"`
	AvgCheckDuration time.Duration    `json:"avg_check_duration"`
	TopBlocked       []CommandCount   `json:"top_blocked"`
	TopCommands      []CommandCount   `json:"top_commands"`
	Reloads          int64            `json:"reloads"`
	LastReload       time.Time        `json:"last_reload"`
	Trie             trie.Statistics  `json:"trie"`
	Validators       []ValidatorStats `json:"validators"`
}
