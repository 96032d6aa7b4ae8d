package rules

import (
	"fmt"
	"strings"

	"newnan/cbfirewall/pkg/config"
	"newnan/cbfirewall/pkg/firewall/trie"
	"newnan/cbfirewall/pkg/firewall/validate"
)

// Validator type names accepted in ValidatorSpec.Type.
const (
	TypeCoordinate = "coordinate"
	TypeSelector   = "selector"
	TypeItem       = "item"
	TypeExecute    = "execute"
	TypeAll        = "all"
	TypeAny        = "any"
	TypeSequence   = "sequence"
	TypeEnd        = "end"
)

// Preset names accepted in ValidatorSpec.Preset.
const (
	PresetDefault    = "default"
	PresetStrict     = "strict"
	PresetPermissive = "permissive"
)

// Builder turns validator specs into validators. Options a spec leaves unset
// take the limits of the firewall configuration.
type Builder struct {
	fw      config.FirewallConfig
	checker validate.CommandChecker
}

// NewBuilder creates a Builder. The checker is handed to execute validators;
// it is normally the trie the built rules are loaded into.
func NewBuilder(fw config.FirewallConfig, checker validate.CommandChecker) *Builder {
	return &Builder{fw: fw, checker: checker}
}

// Coordinate returns the coordinate configuration derived from the firewall limits.
func (b *Builder) Coordinate() validate.CoordinateConfig {
	return validate.CoordinateConfig{
		MaxRange:      b.fw.MaxCoordinateRange,
		AllowRelative: b.fw.AllowRelativeCoordinates,
		AllowLocal:    b.fw.AllowLocalCoordinates,
		Count:         3,
	}
}

// Selector returns the selector configuration derived from the firewall limits.
func (b *Builder) Selector() validate.SelectorConfig {
	return validate.SelectorConfig{
		Allowed:          b.fw.AllowedSelectors,
		MaxRange:         b.fw.MaxSelectorRange,
		AllowPlayerNames: b.fw.AllowPlayerNames,
		MaxTargetCount:   b.fw.MaxTargetCount,
	}
}

// Item returns the item configuration derived from the firewall limits.
func (b *Builder) Item() validate.ItemConfig {
	items := b.fw.SafeItems
	if len(items) == 0 {
		items = validate.DefaultSafeItems
	}
	return validate.ItemConfig{
		SafeItems:             items,
		MaxQuantity:           b.fw.MaxItemQuantity,
		AllowCustomNamespaces: b.fw.AllowCustomNamespaces,
	}
}

// Execute returns the execute configuration derived from the firewall limits.
// With StrictExecute set the strict preset is used instead.
func (b *Builder) Execute() validate.ExecuteConfig {
	if b.fw.StrictExecute {
		return validate.StrictExecuteConfig()
	}
	return validate.ExecuteConfig{
		MaxDepth:   b.fw.MaxExecuteDepth,
		Selector:   b.Selector(),
		Coordinate: b.Coordinate(),
	}
}

// Build creates the validator tree described by spec.
func (b *Builder) Build(spec *ValidatorSpec) (validate.Validator, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: empty validator", ErrInvalidRule)
	}

	v, err := b.build(spec)
	if err != nil {
		return nil, err
	}
	if spec.Enabled != nil && !*spec.Enabled {
		if t, ok := v.(interface{ SetEnabled(bool) }); ok {
			t.SetEnabled(false)
		}
	}
	return v, nil
}

func (b *Builder) build(spec *ValidatorSpec) (validate.Validator, error) {
	switch strings.ToLower(spec.Type) {
	case TypeCoordinate:
		cfg, err := b.coordinateConfig(spec, b.Coordinate())
		if err != nil {
			return nil, err
		}
		return validate.NewCoordinate(cfg), nil

	case TypeSelector:
		cfg, err := b.selectorConfig(spec)
		if err != nil {
			return nil, err
		}
		return validate.NewSelector(cfg), nil

	case TypeItem:
		cfg := b.Item()
		if len(spec.SafeItems) > 0 {
			cfg.SafeItems = spec.SafeItems
		}
		if spec.MaxQuantity != 0 {
			cfg.MaxQuantity = spec.MaxQuantity
		}
		if spec.AllowCustomNamespaces != nil {
			cfg.AllowCustomNamespaces = *spec.AllowCustomNamespaces
		}
		cfg.NoQuantity = spec.NoQuantity
		if cfg.MaxQuantity < 1 && !cfg.NoQuantity {
			return nil, fmt.Errorf("%w: item max_quantity must be at least 1", ErrInvalidRule)
		}
		return validate.NewItem(cfg), nil

	case TypeExecute:
		if b.checker == nil {
			return nil, ErrNoChecker
		}
		cfg, err := b.executeConfig(spec)
		if err != nil {
			return nil, err
		}
		return validate.NewExecute(b.checker, cfg), nil

	case TypeAll, TypeAny, TypeSequence:
		if len(spec.Children) == 0 {
			return nil, fmt.Errorf("%w: %s validator needs children", ErrInvalidRule, spec.Type)
		}
		children := make([]validate.Validator, 0, len(spec.Children))
		for i, c := range spec.Children {
			child, err := b.Build(c)
			if err != nil {
				return nil, fmt.Errorf("%s child %d: %w", spec.Type, i, err)
			}
			children = append(children, child)
		}
		switch strings.ToLower(spec.Type) {
		case TypeAll:
			return validate.All(children...), nil
		case TypeAny:
			return validate.Any(children...), nil
		default:
			return validate.NewSequence(children...), nil
		}

	case TypeEnd:
		return validate.NewEnd(), nil

	case "":
		return nil, fmt.Errorf("%w: validator type is required", ErrInvalidRule)

	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownValidator, spec.Type)
	}
}

func (b *Builder) coordinateConfig(spec *ValidatorSpec, cfg validate.CoordinateConfig) (validate.CoordinateConfig, error) {
	if spec.MaxRange != nil {
		cfg.MaxRange = *spec.MaxRange
	}
	if spec.AllowRelative != nil {
		cfg.AllowRelative = *spec.AllowRelative
	}
	if spec.AllowLocal != nil {
		cfg.AllowLocal = *spec.AllowLocal
	}
	if spec.Count != 0 {
		cfg.Count = spec.Count
	}
	if cfg.MaxRange < 0 {
		return cfg, fmt.Errorf("%w: coordinate max_range must not be negative", ErrInvalidRule)
	}
	if cfg.Count < 1 || cfg.Count > 3 {
		return cfg, fmt.Errorf("%w: coordinate count must be 1, 2 or 3", ErrInvalidRule)
	}
	return cfg, nil
}

func (b *Builder) selectorConfig(spec *ValidatorSpec) (validate.SelectorConfig, error) {
	var cfg validate.SelectorConfig
	switch strings.ToLower(spec.Preset) {
	case "":
		cfg = b.Selector()
	case PresetDefault:
		cfg = validate.DefaultSelectorConfig()
	case PresetStrict:
		cfg = validate.StrictSelectorConfig()
	case PresetPermissive:
		cfg = validate.PermissiveSelectorConfig()
	default:
		return cfg, fmt.Errorf("%w: unknown selector preset %q", ErrInvalidRule, spec.Preset)
	}

	if len(spec.Allowed) > 0 {
		cfg.Allowed = spec.Allowed
	}
	if spec.MaxRange != nil {
		cfg.MaxRange = *spec.MaxRange
	}
	if spec.AllowPlayerNames != nil {
		cfg.AllowPlayerNames = *spec.AllowPlayerNames
	}
	if spec.MaxTargetCount != 0 {
		cfg.MaxTargetCount = spec.MaxTargetCount
	}
	for _, sel := range cfg.Allowed {
		if !strings.HasPrefix(sel, "@") || len(sel) != 2 {
			return cfg, fmt.Errorf("%w: invalid selector %q", ErrInvalidRule, sel)
		}
	}
	if cfg.MaxRange < 0 {
		return cfg, fmt.Errorf("%w: selector max_range must not be negative", ErrInvalidRule)
	}
	return cfg, nil
}

func (b *Builder) executeConfig(spec *ValidatorSpec) (validate.ExecuteConfig, error) {
	var cfg validate.ExecuteConfig
	switch strings.ToLower(spec.Preset) {
	case "":
		cfg = b.Execute()
	case PresetDefault:
		cfg = validate.DefaultExecuteConfig()
	case PresetStrict:
		cfg = validate.StrictExecuteConfig()
	case PresetPermissive:
		cfg = validate.PermissiveExecuteConfig()
	default:
		return cfg, fmt.Errorf("%w: unknown execute preset %q", ErrInvalidRule, spec.Preset)
	}

	if spec.MaxDepth != 0 {
		cfg.MaxDepth = spec.MaxDepth
	}
	if cfg.MaxDepth < 1 {
		return cfg, fmt.Errorf("%w: execute max_depth must be at least 1", ErrInvalidRule)
	}
	if spec.Selector != nil {
		sel, err := b.selectorConfig(spec.Selector)
		if err != nil {
			return cfg, fmt.Errorf("execute selector: %w", err)
		}
		cfg.Selector = sel
	}
	if spec.Coordinate != nil {
		coord, err := b.coordinateConfig(spec.Coordinate, cfg.Coordinate)
		if err != nil {
			return cfg, fmt.Errorf("execute coordinate: %w", err)
		}
		cfg.Coordinate = coord
	}
	return cfg, nil
}

// Compile builds the rules of a file. Every entry and alias becomes one
// trie rule; entries that share a validator spec share one validator
// instance across their aliases. The first failing entry is reported as a
// *RuleError.
func (b *Builder) Compile(f *File) ([]trie.Rule, error) {
	var out []trie.Rule
	for i, spec := range f.Rules {
		rules, err := b.compileRule(spec)
		if err != nil {
			return nil, &RuleError{File: f.Path, Index: i, Rule: spec.Command, Cause: err}
		}
		out = append(out, rules...)
	}
	return out, nil
}

func (b *Builder) compileRule(spec RuleSpec) ([]trie.Rule, error) {
	if strings.TrimSpace(spec.Command) == "" {
		return nil, fmt.Errorf("%w: command is required", ErrInvalidRule)
	}

	var v validate.Validator
	if spec.Validator != nil {
		built, err := b.Build(spec.Validator)
		if err != nil {
			return nil, err
		}
		v = built
	}

	var metadata map[string]any
	if spec.Description != "" {
		metadata = map[string]any{"description": spec.Description}
	}

	prefixes := append([]string{spec.Command}, spec.Aliases...)
	out := make([]trie.Rule, 0, len(prefixes))
	for _, p := range prefixes {
		tokens := strings.Fields(strings.TrimPrefix(strings.TrimSpace(p), "/"))
		if len(tokens) == 0 {
			return nil, fmt.Errorf("%w: empty alias", ErrInvalidRule)
		}
		out = append(out, trie.Rule{Tokens: tokens, Validator: v, Metadata: metadata})
	}
	return out, nil
}
