package main

import (
	"encoding/json"
	"strings"
	"testing"

	"newnan/cbfirewall/pkg/cli"
)

const testCases = `cases:
  - name: "say"
    command: "say hello"
    expect: allow
  - name: "op"
    command: "op alice"
    expect: block
`

func setRulesFlags(t *testing.T, rulesFile, format string, progress bool) {
	t.Helper()
	old := rulesFlags
	rulesFlags.rules = rulesFile
	rulesFlags.format = format
	rulesFlags.progress = progress
	t.Cleanup(func() { rulesFlags = old })
}

func TestRunRulesList(t *testing.T) {
	dir := useConfig(t, "")
	setRulesFlags(t, writeFile(t, dir, "rules.yaml", `rules:
  - command: say
  - command: give
    validator:
      type: item
`), "json", false)

	cmd, stdout, _ := testCmd("")
	if err := runRulesList(cmd, nil); err != nil {
		t.Fatalf("runRulesList() error = %v", err)
	}

	var list ruleList
	if err := json.Unmarshal(stdout.Bytes(), &list); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	if list.Count != 2 || len(list.Rules) != 2 {
		t.Fatalf("count = %d, rules = %d, want 2", list.Count, len(list.Rules))
	}
	if list.Rules[0].Command != "give" || list.Rules[0].Validator == "" {
		t.Errorf("first rule = %+v, want give with a validator", list.Rules[0])
	}
	if list.Rules[1].Command != "say" || list.Rules[1].Validator != "" {
		t.Errorf("second rule = %+v, want literal say", list.Rules[1])
	}
	if !strings.HasPrefix(list.Source, "file:") {
		t.Errorf("source = %q, want a file source", list.Source)
	}
}

func TestRunRulesListText(t *testing.T) {
	useConfig(t, "")
	setRulesFlags(t, "", "text", false)

	cmd, stdout, _ := testCmd("")
	if err := runRulesList(cmd, nil); err != nil {
		t.Fatalf("runRulesList() error = %v", err)
	}
	for _, want := range []string{"COMMAND", "minecraft:give", "from default"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("output does not contain %q:\n%s", want, stdout.String())
		}
	}
}

func TestRunRulesTest(t *testing.T) {
	tests := []struct {
		name     string
		cases    string
		progress bool
		wantCode int
		want     string
	}{
		{name: "all pass", cases: testCases, wantCode: cli.ExitOK, want: "2 passed, 0 failed"},
		{name: "with progress", cases: testCases, progress: true, wantCode: cli.ExitOK, want: "2 passed, 0 failed"},
		{
			name:     "failure",
			cases:    "cases:\n  - name: op allowed\n    command: op alice\n    expect: allow\n",
			wantCode: cli.ExitFailure,
			want:     "FAIL op allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := useConfig(t, "")
			setRulesFlags(t, "", "text", tt.progress)
			path := writeFile(t, dir, "cases.yaml", tt.cases)

			cmd, stdout, stderr := testCmd("")
			wantExitCode(t, runRulesTest(cmd, []string{path}), tt.wantCode)
			if !strings.Contains(stdout.String(), tt.want) {
				t.Errorf("output = %q, want it to contain %q", stdout.String(), tt.want)
			}
			if tt.progress && !strings.Contains(stderr.String(), "2/2 cases") {
				t.Errorf("stderr = %q, want progress output", stderr.String())
			}
		})
	}
}

func TestRunRulesTestBadFile(t *testing.T) {
	dir := useConfig(t, "")
	setRulesFlags(t, "", "text", false)
	path := writeFile(t, dir, "cases.yaml", "cases:\n  - command: say\n    expect: maybe\n")

	cmd, _, _ := testCmd("")
	err := runRulesTest(cmd, []string{path})
	if err == nil || cli.ExitCode(err) != cli.ExitFailure {
		t.Errorf("runRulesTest() error = %v, want a command error", err)
	}
}
