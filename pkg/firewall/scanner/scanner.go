package scanner

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Scanner tokenizes a command string on whitespace.
//
// Runs of whitespace are collapsed and never yield empty tokens. The scanner is
// case-preserving; callers lowercase tokens themselves before comparing keywords.
// A Scanner is a cursor, not a shared resource: it must not be used from more
// than one goroutine at a time. Use Sub to hand an independent cursor to another
// consumer.
type Scanner struct {
	command string
	index   int
}

// New creates a scanner positioned at the start of command.
func New(command string) *Scanner {
	return &Scanner{command: command}
}

// Next returns the next token and advances past it.
// The boolean is false once the input is exhausted.
func (s *Scanner) Next() (string, bool) {
	start, end := s.bounds()
	if start == end {
		s.index = end
		return "", false
	}
	s.index = end
	return s.command[start:end], true
}

// Peek returns the next token without advancing.
func (s *Scanner) Peek() (string, bool) {
	start, end := s.bounds()
	if start == end {
		return "", false
	}
	return s.command[start:end], true
}

// Remaining returns the unconsumed suffix with surrounding whitespace trimmed.
func (s *Scanner) Remaining() string {
	if s.index >= len(s.command) {
		return ""
	}
	return strings.TrimSpace(s.command[s.index:])
}

// Done reports whether no tokens remain.
func (s *Scanner) Done() bool {
	_, ok := s.Peek()
	return !ok
}

// Index returns the current byte offset into the command.
func (s *Scanner) Index() int {
	return s.index
}

// SetIndex moves the cursor to a byte offset, clamped to the command bounds.
func (s *Scanner) SetIndex(i int) {
	switch {
	case i < 0:
		s.index = 0
	case i > len(s.command):
		s.index = len(s.command)
	default:
		s.index = i
	}
}

// Reset moves the cursor back to the start of the command.
func (s *Scanner) Reset() {
	s.index = 0
}

// Sub returns an independent scanner over the remaining text.
// Consuming tokens from the returned scanner does not advance s.
func (s *Scanner) Sub() *Scanner {
	return New(s.Remaining())
}

// String implements fmt.Stringer.
func (s *Scanner) String() string {
	return fmt.Sprintf("Scanner(command=%q, index=%d)", s.command, s.index)
}

// bounds finds the byte range of the next token starting at the cursor.
func (s *Scanner) bounds() (int, int) {
	start := s.index
	for start < len(s.command) {
		r, size := utf8.DecodeRuneInString(s.command[start:])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	end := start
	for end < len(s.command) {
		r, size := utf8.DecodeRuneInString(s.command[end:])
		if unicode.IsSpace(r) {
			break
		}
		end += size
	}
	return start, end
}

// Tokens splits command into its whitespace-separated tokens.
func Tokens(command string) []string {
	return strings.Fields(command)
}
