package rules

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCases(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCases(t *testing.T) {
	path := writeCases(t, `
cases:
  - name: "give dirt"
    command: "give @s minecraft:dirt 10"
    expect: allow
  - name: "op"
    command: "op alice"
    expect: block
`)

	suite, err := LoadCases(path)
	if err != nil {
		t.Fatalf("LoadCases() error = %v", err)
	}
	if len(suite.Cases) != 2 {
		t.Fatalf("len(Cases) = %d, want 2", len(suite.Cases))
	}
	if suite.Cases[1].Expect != ExpectBlock {
		t.Errorf("Cases[1].Expect = %q", suite.Cases[1].Expect)
	}
}

func TestLoadCases_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing command", "cases:\n  - name: x\n    expect: allow\n", "command is required"},
		{"bad expect", "cases:\n  - command: say\n    expect: maybe\n", "expect must be"},
		{"malformed", "cases: [", "failed to parse case file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCases(writeCases(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadCases() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestRunCases(t *testing.T) {
	tr := defaultTrie(t, defaultFirewall())
	cases := []Case{
		{Name: "allowed as expected", Command: "say hi", Expect: ExpectAllow},
		{Name: "blocked as expected", Command: "op alice", Expect: ExpectBlock},
		{Name: "wrong expectation", Command: "give @a minecraft:dirt", Expect: ExpectAllow},
	}

	results := RunCases(context.Background(), tr, cases)
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if !results[0].Passed || !results[0].Allowed {
		t.Errorf("results[0] = %+v", results[0])
	}
	if !results[1].Passed || results[1].Allowed {
		t.Errorf("results[1] = %+v", results[1])
	}
	if results[2].Passed {
		t.Errorf("results[2] = %+v, want failure", results[2])
	}
}

func TestRunCases_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := RunCases(ctx, defaultTrie(t, defaultFirewall()), []Case{{Command: "say hi", Expect: ExpectAllow}})
	if results[0].Passed || results[0].Error == "" {
		t.Errorf("results[0] = %+v, want cancelled failure", results[0])
	}
}
