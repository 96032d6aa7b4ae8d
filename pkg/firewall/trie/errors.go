package trie

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRule indicates a rule with no tokens.
	ErrEmptyRule = errors.New("rule has no tokens")

	// ErrInvalidToken indicates a rule token that can never match a scanned token.
	ErrInvalidToken = errors.New("invalid rule token")
)

// RuleError reports which rule failed to insert.
type RuleError struct {
	Rule  string
	Index int
	Cause error
}

// Error returns the error message.
func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %d %q: %v", e.Index, e.Rule, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *RuleError) Unwrap() error {
	return e.Cause
}
