package rules

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRule indicates a rule entry that cannot be compiled.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrUnknownValidator indicates a validator type that has no builder.
	ErrUnknownValidator = errors.New("unknown validator type")

	// ErrNoChecker indicates an execute validator built without a command checker.
	ErrNoChecker = errors.New("execute validator requires a command checker")

	// ErrWatcherStarted is returned by Watch on a watcher that was already
	// started once.
	ErrWatcherStarted = errors.New("rule watcher already started")
)

// RuleError describes a failure to compile one entry of a rule file.
type RuleError struct {
	// File is the rule file path, empty for rules parsed from memory.
	File string

	// Index is the position of the entry in the rules list.
	Index int

	// Rule is the command text of the entry.
	Rule string

	// Cause is the underlying error.
	Cause error
}

// Error returns the error message.
func (e *RuleError) Error() string {
	loc := fmt.Sprintf("rule %d", e.Index)
	if e.File != "" {
		loc = e.File + ": " + loc
	}
	if e.Rule != "" {
		loc += fmt.Sprintf(" (%q)", e.Rule)
	}
	return fmt.Sprintf("%s: %v", loc, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *RuleError) Unwrap() error {
	return e.Cause
}
