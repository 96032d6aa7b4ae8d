package validate

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"newnan/cbfirewall/pkg/firewall/scanner"
)

// DefaultVersion is reported by validators that do not set their own version.
const DefaultVersion = "1.0.0"

// Validator decides whether the tokens that follow a matched rule prefix are safe.
//
// Validate consumes tokens from sc and returns true to accept. Implementations
// must fail closed: a missing token, malformed number, unknown keyword or any
// other parse failure returns false.
type Validator interface {
	// Validate inspects the remaining tokens of sc.
	Validate(ctx context.Context, sc *scanner.Scanner) bool

	// Name returns a short identifier for the validator.
	Name() string

	// Description returns a human-readable summary of the configuration.
	Description() string

	// Version returns the validator version.
	Version() string

	// Enabled reports whether the validator is active. A disabled validator
	// accepts every input.
	Enabled() bool
}

// CommandChecker evaluates a complete command against the root rule set.
// The Execute validator uses it to recurse into "execute ... run <command>".
type CommandChecker interface {
	IsCommandSafeContext(ctx context.Context, command string) bool
}

// Stats is a snapshot of a validator's running statistics.
type Stats struct {
	Name                 string  `json:"name"`
	Enabled              bool    `json:"enabled"`
	ValidationCount      int64   `json:"validation_count"`
	AcceptCount          int64   `json:"accept_count"`
	RejectCount          int64   `json:"reject_count"`
	AcceptRate           float64 `json:"accept_rate"`
	LastValidationTimeNs int64   `json:"last_validation_time_ns"`
}

// StatsProvider is implemented by validators that keep statistics.
type StatsProvider interface {
	Stats() Stats
	ResetStatistics()
}

// Base provides the enabled flag and statistics shared by all validators.
// Concrete validators embed *Base and route Validate through Run.
//
// All counters are atomic, so a single validator may be used by concurrent
// callers.
type Base struct {
	name        string
	description string
	version     string

	disabled atomic.Bool

	validations atomic.Int64
	accepts     atomic.Int64
	rejects     atomic.Int64
	lastNs      atomic.Int64
}

// NewBase creates an enabled Base.
func NewBase(name, description string) *Base {
	if description == "" {
		description = "Command validator: " + name
	}
	return &Base{
		name:        name,
		description: description,
		version:     DefaultVersion,
	}
}

// Name returns the validator name.
func (b *Base) Name() string { return b.name }

// Description returns the validator description.
func (b *Base) Description() string { return b.description }

// Version returns the validator version.
func (b *Base) Version() string { return b.version }

// Enabled reports whether the validator is active.
func (b *Base) Enabled() bool { return !b.disabled.Load() }

// SetEnabled toggles the validator. Disabling is an operational override:
// a disabled validator accepts unconditionally.
func (b *Base) SetEnabled(enabled bool) { b.disabled.Store(!enabled) }

// Run applies the enabled bypass and records statistics around fn.
// A panic inside fn is converted into a rejection.
func (b *Base) Run(ctx context.Context, sc *scanner.Scanner, fn func(context.Context, *scanner.Scanner) bool) (ok bool) {
	if b.disabled.Load() {
		return true
	}

	start := time.Now()
	b.validations.Add(1)
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
		if ok {
			b.accepts.Add(1)
		} else {
			b.rejects.Add(1)
		}
		b.lastNs.Store(time.Since(start).Nanoseconds())
	}()

	if sc == nil {
		return false
	}
	return fn(ctx, sc)
}

// Stats returns a snapshot of the running statistics.
func (b *Base) Stats() Stats {
	count := b.validations.Load()
	accepts := b.accepts.Load()
	rate := 0.0
	if count > 0 {
		rate = float64(accepts) / float64(count)
	}
	return Stats{
		Name:                 b.name,
		Enabled:              b.Enabled(),
		ValidationCount:      count,
		AcceptCount:          accepts,
		RejectCount:          b.rejects.Load(),
		AcceptRate:           rate,
		LastValidationTimeNs: b.lastNs.Load(),
	}
}

// ResetStatistics zeroes all counters.
func (b *Base) ResetStatistics() {
	b.validations.Store(0)
	b.accepts.Store(0)
	b.rejects.Store(0)
	b.lastNs.Store(0)
}

// String implements fmt.Stringer.
func (b *Base) String() string {
	return fmt.Sprintf("Validator(name=%q, enabled=%t, validations=%d)", b.name, b.Enabled(), b.validations.Load())
}

// Func adapts a plain function into a Validator.
type Func struct {
	*Base
	fn func(context.Context, *scanner.Scanner) bool
}

// NewFunc wraps fn as a named validator.
func NewFunc(name string, fn func(context.Context, *scanner.Scanner) bool) *Func {
	return &Func{Base: NewBase(name, ""), fn: fn}
}

// Validate implements Validator.
func (f *Func) Validate(ctx context.Context, sc *scanner.Scanner) bool {
	return f.Run(ctx, sc, f.fn)
}

// Accept returns a validator that accepts everything.
func Accept() *Func {
	return NewFunc("AcceptValidator", func(context.Context, *scanner.Scanner) bool { return true })
}

// Reject returns a validator that rejects everything.
func Reject() *Func {
	return NewFunc("RejectValidator", func(context.Context, *scanner.Scanner) bool { return false })
}

type depthKey struct{}

// WithDepth returns a context recording the current execute nesting depth.
func WithDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, depthKey{}, depth)
}

// DepthFrom returns the execute nesting depth carried by ctx, 0 if none.
func DepthFrom(ctx context.Context) int {
	if ctx == nil {
		return 0
	}
	if d, ok := ctx.Value(depthKey{}).(int); ok {
		return d
	}
	return 0
}

// IsSafeSelector reports whether token is "@s" or a plausible player name.
func IsSafeSelector(token string) bool {
	if token == "@s" {
		return true
	}
	if strings.HasPrefix(token, "@") {
		return false
	}
	return isPlayerName(token)
}

// IsSafeCoordinate reports whether coord is relative or an absolute number
// within ±maxRange.
func IsSafeCoordinate(coord string, maxRange float64) bool {
	if coord == "" {
		return false
	}
	if strings.HasPrefix(coord, "~") {
		return true
	}
	v, ok := parseNumber(coord)
	if !ok {
		return false
	}
	return v >= -maxRange && v <= maxRange
}

// IsSafeNumber reports whether value is an integer in [min, max].
func IsSafeNumber(value string, min, max int) bool {
	n, ok := parseInt(value)
	if !ok {
		return false
	}
	return n >= min && n <= max
}

// SkipTokens consumes up to n tokens and returns how many were skipped.
func SkipTokens(sc *scanner.Scanner, n int) int {
	skipped := 0
	for i := 0; i < n; i++ {
		if _, ok := sc.Next(); !ok {
			break
		}
		skipped++
	}
	return skipped
}

// parseNumber parses a finite decimal number. Hexadecimal forms, NaN and
// infinities are rejected.
func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return 0, false
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// isPlayerName matches [A-Za-z0-9_]{1,16}.
func isPlayerName(s string) bool {
	if len(s) < 1 || len(s) > 16 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
