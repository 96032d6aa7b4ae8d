package trie

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"newnan/cbfirewall/pkg/firewall/scanner"
	"newnan/cbfirewall/pkg/firewall/validate"
)

// Rule pairs a literal token prefix with an optional validator for the rest
// of the command.
type Rule struct {
	Tokens    []string
	Validator validate.Validator
	Metadata  map[string]any
}

// Reason explains a match result.
type Reason string

const (
	ReasonLiteralMatch      Reason = "matched literal rule"
	ReasonValidatorAccepted Reason = "validator accepted"
	ReasonValidatorRejected Reason = "validator rejected"
	ReasonNoRule            Reason = "no matching rule"
	ReasonIncomplete        Reason = "incomplete command"
	ReasonEmpty             Reason = "empty command"
)

// MatchResult describes how a command was decided.
type MatchResult struct {
	// Allowed is the verdict.
	Allowed bool

	// Prefix holds the literal tokens matched before the verdict.
	Prefix []string

	// Validator is the name of the validator that decided, if any.
	Validator string

	// Reason explains the verdict.
	Reason Reason
}

// Statistics is a snapshot of the trie's counters.
type Statistics struct {
	TotalValidations int64 `json:"total_validations"`
	TotalMatches     int64 `json:"total_matches"`
	TotalRejections  int64 `json:"total_rejections"`
	TreeSize         int   `json:"tree_size"`
}

// Trie is a token-level prefix tree of allowed commands.
//
// Matching takes the read lock; mutation takes the write lock. Commands not
// matched by any rule are rejected. Trie implements validate.CommandChecker so
// validators can recurse into it.
type Trie struct {
	mu   sync.RWMutex
	root *Node

	totalValidations atomic.Int64
	totalMatches     atomic.Int64
	totalRejections  atomic.Int64
}

// New creates an empty trie.
func New() *Trie {
	return &Trie{root: NewNode(0)}
}

// AddCommand inserts a rule. Only the node of the last token becomes
// terminal and receives the validator and metadata.
func (t *Trie) AddCommand(tokens []string, v validate.Validator, metadata map[string]any) error {
	normalized, err := normalizeTokens(tokens)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	insert(t.root, normalized, v, metadata)
	return nil
}

// AddCommandString inserts a rule given as a whitespace separated string.
func (t *Trie) AddCommandString(command string, v validate.Validator, metadata map[string]any) error {
	return t.AddCommand(scanner.Tokens(command), v, metadata)
}

// RemoveCommand deletes a rule. Nodes shared with other rules are kept.
// It reports whether a rule was removed.
func (t *Trie) RemoveCommand(tokens []string) bool {
	normalized, err := normalizeTokens(tokens)
	if err != nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	removed, _ := remove(t.root, normalized)
	return removed
}

// RemoveCommandString deletes a rule given as a whitespace separated string.
func (t *Trie) RemoveCommandString(command string) bool {
	return t.RemoveCommand(scanner.Tokens(command))
}

// Replace atomically swaps the whole rule set. The new tree is built before
// the write lock is taken; on error the current rules are kept.
func (t *Trie) Replace(rules []Rule) error {
	root := NewNode(0)
	for i, r := range rules {
		normalized, err := normalizeTokens(r.Tokens)
		if err != nil {
			return &RuleError{Rule: strings.Join(r.Tokens, " "), Index: i, Cause: err}
		}
		insert(root, normalized, r.Validator, r.Metadata)
	}

	t.mu.Lock()
	t.root = root
	t.mu.Unlock()
	return nil
}

// Clear removes all rules. Statistics are kept.
func (t *Trie) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.root = NewNode(0)
}

// IsCommandSafe reports whether command is allowed by the rule set.
func (t *Trie) IsCommandSafe(command string) bool {
	return t.Match(context.Background(), command).Allowed
}

// IsCommandSafeContext is IsCommandSafe with a context. Validators recursing
// into the trie must pass the context they were given.
func (t *Trie) IsCommandSafeContext(ctx context.Context, command string) bool {
	return t.Match(ctx, command).Allowed
}

// Match evaluates command and reports how it was decided.
//
// Tokens are matched case-insensitively. The first node reached that carries
// a validator hands the scanner to it and its verdict is final. The first
// terminal node reached allows the command, even if tokens remain.
func (t *Trie) Match(ctx context.Context, command string) MatchResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if !holdsReadLock(ctx, t) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		ctx = withReadLock(ctx, t)
	}

	result := t.walk(ctx, scanner.New(command))

	t.totalValidations.Add(1)
	if result.Allowed {
		t.totalMatches.Add(1)
	} else {
		t.totalRejections.Add(1)
	}
	return result
}

func (t *Trie) walk(ctx context.Context, sc *scanner.Scanner) MatchResult {
	node := t.root
	var prefix []string

	for {
		tok, ok := sc.Next()
		if !ok {
			switch {
			case node.end:
				return MatchResult{Allowed: true, Prefix: prefix, Reason: ReasonLiteralMatch}
			case node == t.root:
				return MatchResult{Reason: ReasonEmpty}
			default:
				return MatchResult{Prefix: prefix, Reason: ReasonIncomplete}
			}
		}

		tok = strings.ToLower(tok)
		child := node.Child(tok)
		if child == nil {
			return MatchResult{Prefix: prefix, Reason: ReasonNoRule}
		}
		prefix = append(prefix, tok)
		node = child

		if v := node.validator; v != nil {
			if v.Validate(ctx, sc) {
				return MatchResult{Allowed: true, Prefix: prefix, Validator: v.Name(), Reason: ReasonValidatorAccepted}
			}
			return MatchResult{Prefix: prefix, Validator: v.Name(), Reason: ReasonValidatorRejected}
		}
		if node.end {
			return MatchResult{Allowed: true, Prefix: prefix, Reason: ReasonLiteralMatch}
		}
	}
}

// Size returns the number of nodes below the root.
func (t *Trie) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.root.SubtreeSize() - 1
}

// RuleCount returns the number of terminal nodes.
func (t *Trie) RuleCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	walkTerminals(t.root, nil, func([]string, *Node) { count++ })
	return count
}

// IsEmpty reports whether the trie holds no rules.
func (t *Trie) IsEmpty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.root.IsLeaf() && !t.root.end
}

// AllCommands returns every rule as a space separated string, sorted.
func (t *Trie) AllCommands() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	walkTerminals(t.root, nil, func(path []string, _ *Node) {
		out = append(out, strings.Join(path, " "))
	})
	return out
}

// Rules returns every rule with its validator and a copy of its metadata.
func (t *Trie) Rules() []Rule {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Rule
	walkTerminals(t.root, nil, func(path []string, n *Node) {
		tokens := make([]string, len(path))
		copy(tokens, path)
		out = append(out, Rule{Tokens: tokens, Validator: n.validator, Metadata: n.MetadataMap()})
	})
	return out
}

// Root returns a deep copy of the tree for inspection.
func (t *Trie) Root() *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.root.DeepCopy()
}

// Statistics returns the current counters and tree size.
func (t *Trie) Statistics() Statistics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return Statistics{
		TotalValidations: t.totalValidations.Load(),
		TotalMatches:     t.totalMatches.Load(),
		TotalRejections:  t.totalRejections.Load(),
		TreeSize:         t.root.SubtreeSize() - 1,
	}
}

// ResetStatistics zeroes the counters.
func (t *Trie) ResetStatistics() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalValidations.Store(0)
	t.totalMatches.Store(0)
	t.totalRejections.Store(0)
}

func insert(root *Node, tokens []string, v validate.Validator, metadata map[string]any) {
	node := root
	for _, tok := range tokens {
		node = node.AddChild(tok)
	}
	node.end = true
	node.validator = v
	for k, val := range metadata {
		node.SetMetadata(k, val)
	}
}

// remove deletes tokens below node. It returns whether a rule was removed and
// whether node itself can now be pruned by its parent.
func remove(node *Node, tokens []string) (removed, prune bool) {
	if len(tokens) == 0 {
		if !node.IsAccepting() {
			return false, false
		}
		node.clearTerminal()
		return true, node.IsLeaf()
	}

	child := node.Child(tokens[0])
	if child == nil {
		return false, false
	}
	removed, prune = remove(child, tokens[1:])
	if prune {
		node.RemoveChild(tokens[0])
	}
	return removed, removed && node.IsLeaf() && !node.IsAccepting() && node.depth > 0
}

func walkTerminals(n *Node, path []string, fn func([]string, *Node)) {
	if n.IsAccepting() && len(path) > 0 {
		fn(path, n)
	}
	for _, tok := range n.ChildTokens() {
		walkTerminals(n.children[tok], append(path, tok), fn)
	}
}

func normalizeTokens(tokens []string) ([]string, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyRule
	}
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" || len(scanner.Tokens(tok)) != 1 {
			return nil, ErrInvalidToken
		}
		out[i] = strings.ToLower(tok)
	}
	return out, nil
}

// readLocks records which tries the current call chain already holds the
// read lock for. A nested Match through a validator must not RLock again:
// a writer queued between the two acquisitions would deadlock both.
type readLocks struct {
	trie *Trie
	next *readLocks
}

type readLockKey struct{}

func holdsReadLock(ctx context.Context, t *Trie) bool {
	held, _ := ctx.Value(readLockKey{}).(*readLocks)
	for ; held != nil; held = held.next {
		if held.trie == t {
			return true
		}
	}
	return false
}

func withReadLock(ctx context.Context, t *Trie) context.Context {
	held, _ := ctx.Value(readLockKey{}).(*readLocks)
	return context.WithValue(ctx, readLockKey{}, &readLocks{trie: t, next: held})
}
