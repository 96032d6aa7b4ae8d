package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"newnan/cbfirewall/pkg/audit/retention"
	"newnan/cbfirewall/pkg/cli"
	"newnan/cbfirewall/pkg/firewall/trie"
	"newnan/cbfirewall/pkg/rules"
)

var validateFlags struct {
	rules []string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and rule files",
	Long: `Check that the configuration file and rule files are well formed.

The configuration is loaded with environment overrides and validated. Every
rule file given with --rules, plus the configured rules.file, is parsed and
compiled against the firewall limits. Nothing is started.

Examples:
  # Validate the configuration
  cbfirewall validate --config config.yaml

  # Validate rule files
  cbfirewall validate --rules rules.yaml --rules strict.yaml`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringArrayVar(&validateFlags.rules, "rules", nil, "rule file to validate (repeatable)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ok := cli.AllowedStyle.Render("✓")
	fail := cli.BlockedStyle.Render("✗")

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "%s Configuration: %v\n", fail, err)
		return cli.NewExitError(cli.ExitConfig, nil)
	}
	name := cfgFile
	if name == "" {
		name = "defaults"
	}
	fmt.Fprintf(out, "%s Configuration valid (%s)\n", ok, name)

	if err := retention.ValidateSchedule(cfg.Audit.Retention.Schedule); err != nil {
		fmt.Fprintf(out, "%s Retention schedule: %v\n", fail, err)
		return cli.NewExitError(cli.ExitConfig, nil)
	}

	files := append([]string{}, validateFlags.rules...)
	if cfg.Rules.File != "" {
		files = append(files, cfg.Rules.File)
	}

	builder := rules.NewBuilder(cfg.Firewall, trie.New())
	failed := 0
	for _, path := range files {
		count, err := compileRuleFile(builder, path)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s %s: %v\n", fail, path, err)
			continue
		}
		fmt.Fprintf(out, "%s %s (%d rules)\n", ok, path, count)
	}
	if len(files) == 0 {
		defaults := rules.DefaultRules(builder)
		fmt.Fprintf(out, "%s Built-in rules (%d rules)\n", ok, len(defaults))
	}

	if failed > 0 {
		return cli.NewExitError(cli.ExitFailure, nil)
	}
	return nil
}

// compileRuleFile parses and compiles a rule file and loads the result into
// a scratch trie to catch conflicting prefixes.
func compileRuleFile(b *rules.Builder, path string) (int, error) {
	f, err := rules.LoadFile(path)
	if err != nil {
		return 0, err
	}
	compiled, err := b.Compile(f)
	if err != nil {
		return 0, err
	}
	if err := trie.New().Replace(compiled); err != nil {
		return 0, err
	}
	return len(compiled), nil
}
