package rules

import (
	"context"
	"log/slog"

	"newnan/cbfirewall/pkg/firewall/trie"
)

// Source produces a complete rule set. Load is called on every reload; the
// builder carries the firewall limits and the checker for execute rules.
type Source interface {
	// Load builds the rules.
	Load(ctx context.Context, b *Builder) ([]trie.Rule, error)

	// Name identifies the source in logs and status output.
	Name() string
}

// FileSource loads rules from a YAML rule file.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a source for the rule file at path.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:   path,
		logger: logger,
	}
}

// Load reads, decodes and compiles the rule file.
func (s *FileSource) Load(ctx context.Context, b *Builder) ([]trie.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := LoadFile(s.path)
	if err != nil {
		return nil, err
	}

	rules, err := b.Compile(f)
	if err != nil {
		return nil, err
	}

	s.logger.Info("loaded rules from file",
		"path", s.path,
		"entries", len(f.Rules),
		"rule_count", len(rules),
	)

	return rules, nil
}

// Name returns the file path.
func (s *FileSource) Name() string { return "file:" + s.path }

// Path returns the rule file path.
func (s *FileSource) Path() string { return s.path }

// DefaultSource builds the built-in rules for the configured whitelist.
type DefaultSource struct{}

// NewDefaultSource creates the built-in rule source.
func NewDefaultSource() *DefaultSource { return &DefaultSource{} }

// Load returns DefaultRules for the builder.
func (s *DefaultSource) Load(ctx context.Context, b *Builder) ([]trie.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return DefaultRules(b), nil
}

// Name returns "default".
func (s *DefaultSource) Name() string { return "default" }

// MemorySource compiles an in-memory rule file. It is mainly used in tests.
type MemorySource struct {
	file *File
}

// NewMemorySource creates a source for the given rule specs.
func NewMemorySource(specs ...RuleSpec) *MemorySource {
	return &MemorySource{file: &File{Rules: specs}}
}

// Load compiles the stored rule specs.
func (s *MemorySource) Load(ctx context.Context, b *Builder) ([]trie.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.Compile(s.file)
}

// SetRules replaces the stored rule specs.
func (s *MemorySource) SetRules(specs ...RuleSpec) {
	s.file = &File{Rules: specs}
}

// Name returns "memory".
func (s *MemorySource) Name() string { return "memory" }
