package rules

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"newnan/cbfirewall/pkg/firewall/validate"
)

// Expectations accepted in Case.Expect.
const (
	ExpectAllow = "allow"
	ExpectBlock = "block"
)

// CaseSuite is a file of rule test cases.
//
//	cases:
//	  - name: "give dirt to self"
//	    command: "give @s minecraft:dirt 10"
//	    expect: allow
//	  - name: "op is blocked"
//	    command: "op alice"
//	    expect: block
type CaseSuite struct {
	Cases []Case `yaml:"cases"`
}

// Case is a single command with its expected verdict.
type Case struct {
	Name    string `yaml:"name"`
	Command string `yaml:"command"`
	Expect  string `yaml:"expect"`
}

// CaseResult is the outcome of running one Case.
type CaseResult struct {
	Case     Case
	Allowed  bool
	Passed   bool
	Error    string
	Duration time.Duration
}

// LoadCases reads a case file. Every case must name a command and expect
// either "allow" or "block".
func LoadCases(path string) (*CaseSuite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file %q: %w", path, err)
	}

	var suite CaseSuite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse case file %q: %w", path, err)
	}

	for i, c := range suite.Cases {
		if c.Command == "" {
			return nil, fmt.Errorf("case %d (%q): command is required", i, c.Name)
		}
		if c.Expect != ExpectAllow && c.Expect != ExpectBlock {
			return nil, fmt.Errorf("case %d (%q): expect must be %q or %q, got %q", i, c.Name, ExpectAllow, ExpectBlock, c.Expect)
		}
	}
	return &suite, nil
}

// RunCases checks every case against checker. A cancelled context marks the
// remaining cases as failed.
func RunCases(ctx context.Context, checker validate.CommandChecker, cases []Case) []CaseResult {
	results := make([]CaseResult, 0, len(cases))
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			results = append(results, CaseResult{Case: c, Error: err.Error()})
			continue
		}

		start := time.Now()
		allowed := checker.IsCommandSafeContext(ctx, c.Command)
		results = append(results, CaseResult{
			Case:     c,
			Allowed:  allowed,
			Passed:   allowed == (c.Expect == ExpectAllow),
			Duration: time.Since(start),
		})
	}
	return results
}
