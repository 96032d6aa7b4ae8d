package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"newnan/cbfirewall/pkg/cli"
)

// testCmd returns a command wired to in-memory streams.
func testCmd(stdin string) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetContext(context.Background())
	return cmd, stdout, stderr
}

// useConfig points --config at a file with the given YAML for one test.
func useConfig(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	path := ""
	if yaml != "" {
		path = writeFile(t, dir, "config.yaml", yaml)
	}
	old := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = old })
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func wantExitCode(t *testing.T, err error, code int) {
	t.Helper()
	if code == cli.ExitOK {
		if err != nil {
			t.Fatalf("error = %v, want nil", err)
		}
		return
	}
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want *cli.ExitError", err)
	}
	if exitErr.Code != code {
		t.Errorf("exit code = %d, want %d", exitErr.Code, code)
	}
}

func TestRootCommandTree(t *testing.T) {
	want := []string{"audit", "check", "completion", "rules", "serve", "validate", "version"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("root command is missing %q", name)
		}
	}

	for _, flag := range []string{"config", "verbose"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s is not registered", flag)
		}
	}
}

func TestLoadConfigError(t *testing.T) {
	useConfig(t, "server: [not a map")

	_, err := loadConfig()
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("loadConfig() error = %v, want a config error", err)
	}
}

func TestRuleSource(t *testing.T) {
	useConfig(t, "")
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if src := ruleSource(cfg, "", nil); src != nil {
		t.Errorf("ruleSource() = %v, want nil for built-in rules", src)
	}

	cfg.Rules.File = "configured.yaml"
	if src := ruleSource(cfg, "", nil); src == nil || src.Name() != "file:configured.yaml" {
		t.Errorf("ruleSource() should use rules.file")
	}
	if src := ruleSource(cfg, "override.yaml", nil); src == nil || src.Name() != "file:override.yaml" {
		t.Errorf("ruleSource() should prefer the override")
	}
}
