package rules

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the decoded form of a YAML rule file.
//
//	rules:
//	  - command: "say"
//	  - command: "give"
//	    aliases: ["minecraft:give"]
//	    validator:
//	      type: sequence
//	      children:
//	        - type: selector
//	        - type: item
//	          max_quantity: 16
type File struct {
	// Rules lists the allowed commands in file order.
	Rules []RuleSpec `yaml:"rules"`

	// Path is the file the rules were read from. It is not part of the YAML.
	Path string `yaml:"-"`
}

// RuleSpec is a single allowed command.
type RuleSpec struct {
	// Command is the literal token prefix, e.g. "gamerule keepInventory".
	Command string `yaml:"command"`

	// Aliases are additional prefixes that share the validator instance.
	Aliases []string `yaml:"aliases,omitempty"`

	// Description is stored as rule metadata.
	Description string `yaml:"description,omitempty"`

	// Validator checks the tokens after the prefix. Without one the prefix
	// alone authorizes the command.
	Validator *ValidatorSpec `yaml:"validator,omitempty"`
}

// ValidatorSpec describes a validator tree. Fields that are not set fall
// back to the limits of the firewall configuration the Builder was created
// with; fields that do not apply to Type are rejected.
type ValidatorSpec struct {
	// Type selects the validator.
	// Options: "coordinate", "selector", "item", "execute", "all", "any",
	// "sequence", "end"
	Type string `yaml:"type"`

	// Preset selects a built-in configuration for selector and execute
	// validators before the other fields are applied.
	// Options: "default", "strict", "permissive"
	Preset string `yaml:"preset,omitempty"`

	// Enabled set to false builds the validator disabled, so it accepts
	// everything without recording statistics.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Coordinate and selector options
	MaxRange *float64 `yaml:"max_range,omitempty"`

	// Coordinate options
	AllowRelative *bool `yaml:"allow_relative,omitempty"`
	AllowLocal    *bool `yaml:"allow_local,omitempty"`
	Count         int   `yaml:"count,omitempty"`

	// Selector options
	Allowed          []string `yaml:"allowed,omitempty"`
	AllowPlayerNames *bool    `yaml:"allow_player_names,omitempty"`
	MaxTargetCount   int      `yaml:"max_target_count,omitempty"`

	// Item options
	SafeItems             []string `yaml:"safe_items,omitempty"`
	MaxQuantity           int      `yaml:"max_quantity,omitempty"`
	AllowCustomNamespaces *bool    `yaml:"allow_custom_namespaces,omitempty"`
	NoQuantity            bool     `yaml:"no_quantity,omitempty"`

	// Execute options
	MaxDepth   int            `yaml:"max_depth,omitempty"`
	Selector   *ValidatorSpec `yaml:"selector,omitempty"`
	Coordinate *ValidatorSpec `yaml:"coordinate,omitempty"`

	// Composite children for all, any and sequence
	Children []*ValidatorSpec `yaml:"children,omitempty"`
}

// Parse decodes a rule file. Unknown fields are rejected so that a typo in
// an option does not silently widen a rule.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		// An empty document decodes to io.EOF
		if len(bytes.TrimSpace(data)) == 0 {
			return &f, nil
		}
		return nil, err
	}
	return &f, nil
}

// LoadFile reads and decodes a rule file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %q: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule file %q: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Marshal encodes the file back to YAML.
func (f *File) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
