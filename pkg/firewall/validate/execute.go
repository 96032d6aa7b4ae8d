package validate

import (
	"context"
	"fmt"
	"math"
	"strings"

	"newnan/cbfirewall/pkg/firewall/scanner"
)

const (
	// DefaultMaxExecuteDepth bounds nested "execute ... run execute ..." chains.
	DefaultMaxExecuteDepth = 10

	maxRotation = 360.0
)

var (
	dimensions = toSet([]string{"overworld", "the_nether", "the_end"})
	anchors    = toSet([]string{"eyes", "feet"})
)

// ExecuteConfig configures an Execute validator.
type ExecuteConfig struct {
	// MaxDepth is the maximum number of nested execute commands. Zero means
	// DefaultMaxExecuteDepth.
	MaxDepth int

	// Selector validates the targets of as, at and facing entity.
	Selector SelectorConfig

	// Coordinate validates positioned and facing positions. Count is forced to 3.
	Coordinate CoordinateConfig
}

// DefaultExecuteConfig uses a strict selector and default coordinates.
func DefaultExecuteConfig() ExecuteConfig {
	return ExecuteConfig{
		MaxDepth:   DefaultMaxExecuteDepth,
		Selector:   StrictSelectorConfig(),
		Coordinate: DefaultCoordinateConfig(),
	}
}

// StrictExecuteConfig allows three nested levels, @s only and absolute
// coordinates within ±100.
func StrictExecuteConfig() ExecuteConfig {
	return ExecuteConfig{
		MaxDepth: 3,
		Selector: StrictSelectorConfig(),
		Coordinate: CoordinateConfig{
			MaxRange:      100,
			AllowRelative: false,
			AllowLocal:    false,
			Count:         3,
		},
	}
}

// PermissiveExecuteConfig allows ten nested levels, @s/@p and player names.
func PermissiveExecuteConfig() ExecuteConfig {
	return ExecuteConfig{
		MaxDepth:   DefaultMaxExecuteDepth,
		Selector:   PermissiveSelectorConfig(),
		Coordinate: DefaultCoordinateConfig(),
	}
}

// Execute validates an execute clause chain terminated by "run <command>".
//
// The command after run is checked against the root rule set through a
// CommandChecker, so nested execute commands recurse. The nesting depth is
// carried in the context of each call rather than stored on the validator,
// so one Execute may serve concurrent callers.
type Execute struct {
	*Base
	checker    CommandChecker
	maxDepth   int
	selector   *Selector
	coordinate *Coordinate
}

// NewExecute creates an Execute validator that recurses into checker.
func NewExecute(checker CommandChecker, cfg ExecuteConfig) *Execute {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxExecuteDepth
	}
	cfg.Coordinate.Count = 3
	return &Execute{
		Base:       NewBase("ExecuteValidator", "Validates execute command structure"),
		checker:    checker,
		maxDepth:   cfg.MaxDepth,
		selector:   NewSelector(cfg.Selector),
		coordinate: NewCoordinate(cfg.Coordinate),
	}
}

// NewStrictExecute creates a validator from StrictExecuteConfig.
func NewStrictExecute(checker CommandChecker) *Execute {
	return NewExecute(checker, StrictExecuteConfig())
}

// NewPermissiveExecute creates a validator from PermissiveExecuteConfig.
func NewPermissiveExecute(checker CommandChecker) *Execute {
	return NewExecute(checker, PermissiveExecuteConfig())
}

// Validate implements Validator.
func (e *Execute) Validate(ctx context.Context, sc *scanner.Scanner) bool {
	return e.Run(ctx, sc, e.validate)
}

// MaxDepth returns the maximum nesting depth.
func (e *Execute) MaxDepth() int { return e.maxDepth }

// Selector returns the selector validator used for as, at and facing entity.
func (e *Execute) Selector() *Selector { return e.selector }

// Coordinate returns the coordinate validator used for positioned and facing.
func (e *Execute) Coordinate() *Coordinate { return e.coordinate }

// Description implements Validator.
func (e *Execute) Description() string {
	return fmt.Sprintf("Execute validator: maxDepth=%d, %s, %s",
		e.maxDepth, e.selector.Description(), e.coordinate.Description())
}

func (e *Execute) validate(ctx context.Context, sc *scanner.Scanner) bool {
	depth := DepthFrom(ctx)
	if depth >= e.maxDepth || e.checker == nil {
		return false
	}

	for {
		tok, ok := sc.Next()
		if !ok {
			return false
		}

		switch strings.ToLower(tok) {
		case "run":
			rest := sc.Remaining()
			if rest == "" {
				return false
			}
			return e.checker.IsCommandSafeContext(WithDepth(ctx, depth+1), rest)
		case "as", "at":
			if !e.selector.Validate(ctx, sc) {
				return false
			}
		case "positioned":
			if !e.coordinate.Validate(ctx, sc) {
				return false
			}
		case "facing":
			if !e.validateFacing(ctx, sc) {
				return false
			}
		case "rotated":
			if !validateRotation(sc) || !validateRotation(sc) {
				return false
			}
		case "in":
			if !validateDimension(sc) {
				return false
			}
		case "align":
			if !validateAlign(sc) {
				return false
			}
		case "anchored":
			tok, ok := sc.Next()
			if !ok {
				return false
			}
			if _, ok := anchors[strings.ToLower(tok)]; !ok {
				return false
			}
		case "if", "unless", "store":
			return false
		default:
			return false
		}
	}
}

func (e *Execute) validateFacing(ctx context.Context, sc *scanner.Scanner) bool {
	next, ok := sc.Peek()
	if !ok {
		return false
	}
	if !strings.EqualFold(next, "entity") {
		return e.coordinate.Validate(ctx, sc)
	}

	sc.Next()
	if !e.selector.Validate(ctx, sc) {
		return false
	}
	if anchor, ok := sc.Peek(); ok {
		if _, isAnchor := anchors[strings.ToLower(anchor)]; isAnchor {
			sc.Next()
		}
	}
	return true
}

func validateRotation(sc *scanner.Scanner) bool {
	tok, ok := sc.Next()
	if !ok {
		return false
	}
	if strings.HasPrefix(tok, "~") {
		tok = tok[1:]
		if tok == "" {
			return true
		}
	}
	v, ok := parseNumber(tok)
	return ok && math.Abs(v) <= maxRotation
}

func validateDimension(sc *scanner.Scanner) bool {
	tok, ok := sc.Next()
	if !ok {
		return false
	}
	_, ok = dimensions[strings.TrimPrefix(strings.ToLower(tok), "minecraft:")]
	return ok
}

// validateAlign accepts a non-empty combination of x, y and z without repeats.
func validateAlign(sc *scanner.Scanner) bool {
	tok, ok := sc.Next()
	if !ok || len(tok) > 3 {
		return false
	}
	seen := map[rune]bool{}
	for _, r := range strings.ToLower(tok) {
		if (r != 'x' && r != 'y' && r != 'z') || seen[r] {
			return false
		}
		seen[r] = true
	}
	return true
}
