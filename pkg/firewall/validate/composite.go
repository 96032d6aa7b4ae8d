package validate

import (
	"context"
	"fmt"
	"strings"

	"newnan/cbfirewall/pkg/firewall/scanner"
)

// Mode selects how a Composite combines its children.
type Mode string

const (
	// ModeAnd requires every child to accept.
	ModeAnd Mode = "AND"

	// ModeOr requires at least one child to accept.
	ModeOr Mode = "OR"
)

// Composite combines validators with AND or OR semantics.
// Every child runs on its own sub-scanner, so branches never observe each
// other's consumption and the parent scanner is not advanced.
type Composite struct {
	*Base
	mode     Mode
	children []Validator
}

// NewComposite creates a Composite. An empty child list accepts.
func NewComposite(mode Mode, children ...Validator) *Composite {
	if mode != ModeOr {
		mode = ModeAnd
	}
	return &Composite{
		Base:     NewBase("CompositeValidator", ""),
		mode:     mode,
		children: children,
	}
}

// All is shorthand for NewComposite(ModeAnd, children...).
func All(children ...Validator) *Composite { return NewComposite(ModeAnd, children...) }

// Any is shorthand for NewComposite(ModeOr, children...).
func Any(children ...Validator) *Composite { return NewComposite(ModeOr, children...) }

// Validate implements Validator.
func (c *Composite) Validate(ctx context.Context, sc *scanner.Scanner) bool {
	return c.Run(ctx, sc, func(ctx context.Context, sc *scanner.Scanner) bool {
		if len(c.children) == 0 {
			return true
		}
		for _, child := range c.children {
			ok := child.Validate(ctx, sc.Sub())
			if c.mode == ModeOr && ok {
				return true
			}
			if c.mode == ModeAnd && !ok {
				return false
			}
		}
		return c.mode == ModeAnd
	})
}

// Mode returns the combination mode.
func (c *Composite) Mode() Mode { return c.mode }

// Children returns the child validators.
func (c *Composite) Children() []Validator { return c.children }

// Description implements Validator.
func (c *Composite) Description() string {
	return fmt.Sprintf("Composite validator (%s) with %d sub-validators: %s",
		c.mode, len(c.children), childNames(c.children))
}

// Sequence runs validators one after another on the same scanner, each
// consuming its own tokens. All must accept.
//
//	give <selector> <item> [count] => NewSequence(NewSelector(...), NewItem(...))
type Sequence struct {
	*Base
	children []Validator
}

// NewSequence creates a Sequence. An empty sequence accepts.
func NewSequence(children ...Validator) *Sequence {
	return &Sequence{
		Base:     NewBase("SequenceValidator", ""),
		children: children,
	}
}

// Validate implements Validator.
func (s *Sequence) Validate(ctx context.Context, sc *scanner.Scanner) bool {
	return s.Run(ctx, sc, func(ctx context.Context, sc *scanner.Scanner) bool {
		for _, child := range s.children {
			if !child.Validate(ctx, sc) {
				return false
			}
		}
		return true
	})
}

// Children returns the child validators.
func (s *Sequence) Children() []Validator { return s.children }

// Description implements Validator.
func (s *Sequence) Description() string {
	return fmt.Sprintf("Sequence validator with %d steps: %s", len(s.children), childNames(s.children))
}

// End accepts only when no tokens remain.
type End struct {
	*Base
}

// NewEnd creates an End validator.
func NewEnd() *End {
	return &End{Base: NewBase("EndValidator", "Accepts only when the command has no further tokens")}
}

// Validate implements Validator.
func (e *End) Validate(ctx context.Context, sc *scanner.Scanner) bool {
	return e.Run(ctx, sc, func(_ context.Context, sc *scanner.Scanner) bool {
		return sc.Done()
	})
}

func childNames(children []Validator) string {
	names := make([]string, len(children))
	for i, child := range children {
		names[i] = child.Name()
	}
	return strings.Join(names, ", ")
}
