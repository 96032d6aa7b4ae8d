package validate

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"newnan/cbfirewall/pkg/firewall/scanner"
)

const (
	// DefaultSelectorRange bounds distance and position parameters.
	DefaultSelectorRange = 100.0

	// DefaultMaxTargetCount bounds the limit parameter.
	DefaultMaxTargetCount = 1
)

var (
	// AllSelectors lists every Minecraft target selector.
	AllSelectors = []string{"@p", "@a", "@e", "@r", "@s"}

	sortValues     = toSet([]string{"nearest", "furthest", "random", "arbitrary"})
	gamemodeValues = toSet([]string{"survival", "creative", "adventure", "spectator", "0", "1", "2", "3"})
)

// SelectorConfig configures a Selector validator.
type SelectorConfig struct {
	// Allowed lists the selector types that may be used, e.g. "@s".
	Allowed []string

	// MaxRange bounds distance, x/y/z and dx/dy/dz parameters.
	MaxRange float64

	// AllowPlayerNames permits literal player names in place of a selector.
	AllowPlayerNames bool

	// MaxTargetCount bounds the limit/c parameter.
	MaxTargetCount int
}

// DefaultSelectorConfig returns a config allowing only @s.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		Allowed:          []string{"@s"},
		MaxRange:         DefaultSelectorRange,
		AllowPlayerNames: true,
		MaxTargetCount:   DefaultMaxTargetCount,
	}
}

// StrictSelectorConfig allows @s only, with zero range and no player names.
func StrictSelectorConfig() SelectorConfig {
	return SelectorConfig{
		Allowed:          []string{"@s"},
		MaxRange:         0,
		AllowPlayerNames: false,
		MaxTargetCount:   1,
	}
}

// PermissiveSelectorConfig allows @s and @p, range 100 and player names.
func PermissiveSelectorConfig() SelectorConfig {
	return SelectorConfig{
		Allowed:          []string{"@s", "@p"},
		MaxRange:         DefaultSelectorRange,
		AllowPlayerNames: true,
		MaxTargetCount:   DefaultMaxTargetCount,
	}
}

// Selector validates a single target selector or player name token.
type Selector struct {
	*Base
	cfg     SelectorConfig
	allowed map[string]struct{}
}

// NewSelector creates a Selector validator.
func NewSelector(cfg SelectorConfig) *Selector {
	allowed := make(map[string]struct{}, len(cfg.Allowed))
	for _, s := range cfg.Allowed {
		allowed[strings.ToLower(s)] = struct{}{}
	}
	return &Selector{
		Base:    NewBase("SelectorValidator", "Validates target selectors"),
		cfg:     cfg,
		allowed: allowed,
	}
}

// NewStrictSelector creates a validator from StrictSelectorConfig.
func NewStrictSelector() *Selector { return NewSelector(StrictSelectorConfig()) }

// NewPermissiveSelector creates a validator from PermissiveSelectorConfig.
func NewPermissiveSelector() *Selector { return NewSelector(PermissiveSelectorConfig()) }

// Validate implements Validator.
func (s *Selector) Validate(ctx context.Context, sc *scanner.Scanner) bool {
	return s.Run(ctx, sc, func(_ context.Context, sc *scanner.Scanner) bool {
		tok, ok := sc.Next()
		if !ok {
			return false
		}
		return s.ValidateToken(tok)
	})
}

// ValidateToken checks a single selector token without touching statistics.
func (s *Selector) ValidateToken(tok string) bool {
	if strings.HasPrefix(tok, "@") {
		return s.validateSelector(tok)
	}
	return s.cfg.AllowPlayerNames && isPlayerName(tok)
}

// AllowedSelectors returns the allowed selector types, sorted.
func (s *Selector) AllowedSelectors() []string {
	out := make([]string, 0, len(s.allowed))
	for k := range s.allowed {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MaxRange returns the configured parameter range.
func (s *Selector) MaxRange() float64 { return s.cfg.MaxRange }

// PlayerNamesAllowed reports whether literal player names are accepted.
func (s *Selector) PlayerNamesAllowed() bool { return s.cfg.AllowPlayerNames }

// MaxTargetCount returns the maximum limit value.
func (s *Selector) MaxTargetCount() int { return s.cfg.MaxTargetCount }

// Description implements Validator.
func (s *Selector) Description() string {
	return fmt.Sprintf("Selector validator: allowed=%s, range=%g, playerNames=%t, maxTargets=%d",
		strings.Join(s.AllowedSelectors(), ","), s.cfg.MaxRange, s.cfg.AllowPlayerNames, s.cfg.MaxTargetCount)
}

func (s *Selector) validateSelector(tok string) bool {
	kind, args, hasArgs, ok := splitSelector(tok)
	if !ok {
		return false
	}
	if _, allowed := s.allowed[strings.ToLower(kind)]; !allowed {
		return false
	}
	if !hasArgs || strings.TrimSpace(args) == "" {
		return true
	}

	for _, part := range strings.Split(args, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return false
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" || value == "" || !s.validateParameter(key, value) {
			return false
		}
	}
	return true
}

// splitSelector separates "@s[k=v]" into "@s" and "k=v". The bracket, if any,
// must close at the very end of the token.
func splitSelector(tok string) (kind, args string, hasArgs, ok bool) {
	open := strings.IndexByte(tok, '[')
	if open < 0 {
		return tok, "", false, !strings.ContainsRune(tok, ']')
	}
	if !strings.HasSuffix(tok, "]") || strings.Count(tok, "[") != 1 || strings.Count(tok, "]") != 1 {
		return "", "", false, false
	}
	return tok[:open], tok[open+1 : len(tok)-1], true, true
}

func (s *Selector) validateParameter(key, value string) bool {
	switch key {
	case "distance":
		return s.validateDistance(value)
	case "x", "y", "z":
		return IsSafeCoordinate(value, s.cfg.MaxRange)
	case "dx", "dy", "dz":
		v, ok := parseNumber(value)
		return ok && math.Abs(v) <= s.cfg.MaxRange
	case "limit", "c":
		return IsSafeNumber(value, 1, s.cfg.MaxTargetCount)
	case "sort":
		_, ok := sortValues[strings.ToLower(value)]
		return ok
	case "gamemode":
		_, ok := gamemodeValues[strings.ToLower(value)]
		return ok
	case "level":
		return validateIntRange(value, 0, 100)
	case "type", "name", "tag", "team", "scores", "advancements", "nbt":
		return false
	default:
		return false
	}
}

func (s *Selector) validateDistance(value string) bool {
	lo, hi, ok := splitRange(value)
	if !ok {
		return false
	}
	for _, bound := range []string{lo, hi} {
		if bound == "" {
			continue
		}
		v, ok := parseNumber(bound)
		if !ok || v < 0 || v > s.cfg.MaxRange {
			return false
		}
	}
	return true
}

// validateIntRange checks an integer or ..N / N.. / N..M range against [min, max].
func validateIntRange(value string, min, max int) bool {
	lo, hi, ok := splitRange(value)
	if !ok {
		return false
	}
	for _, bound := range []string{lo, hi} {
		if bound == "" {
			continue
		}
		if !IsSafeNumber(bound, min, max) {
			return false
		}
	}
	return true
}

// splitRange parses Minecraft range syntax. A plain value yields lo == hi.
// At least one bound must be present.
func splitRange(value string) (lo, hi string, ok bool) {
	before, after, found := strings.Cut(value, "..")
	if !found {
		return value, value, value != ""
	}
	if strings.Contains(after, "..") || (before == "" && after == "") {
		return "", "", false
	}
	return before, after, true
}
