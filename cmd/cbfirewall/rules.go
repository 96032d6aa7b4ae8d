package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"newnan/cbfirewall/pkg/cli"
	"newnan/cbfirewall/pkg/rules"
)

var rulesFlags struct {
	rules    string
	format   string
	progress bool
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and test firewall rules",
	Long: `Inspect the live rule set and run rule test cases.

Subcommands:
  list  - List the allowed command prefixes
  test  - Run a case file against the rules`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the allowed command prefixes",
	Long: `List every allowed command prefix with the validator attached to it.

Examples:
  # Built-in rules for the configured whitelist
  cbfirewall rules list

  # Rules from a file, as JSON
  cbfirewall rules list --rules rules.yaml --format json`,
	Args: cobra.NoArgs,
	RunE: runRulesList,
}

var rulesTestCmd = &cobra.Command{
	Use:   "test <cases.yaml>",
	Short: "Run rule test cases",
	Long: `Run a case file against the rules and report which cases pass.

The case file lists commands with the expected verdict:

  cases:
    - name: "give dirt to self"
      command: "give @s minecraft:dirt 10"
      expect: allow
    - name: "op is blocked"
      command: "op alice"
      expect: block

The exit status is 1 when any case fails.

Examples:
  cbfirewall rules test cases.yaml
  cbfirewall rules test cases.yaml --rules rules.yaml --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: runRulesTest,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesTestCmd)

	rulesCmd.PersistentFlags().StringVar(&rulesFlags.rules, "rules", "", "rule file (overrides rules.file)")
	rulesCmd.PersistentFlags().StringVarP(&rulesFlags.format, "format", "f", "text", "output format: text, json, yaml, csv")
	rulesTestCmd.Flags().BoolVar(&rulesFlags.progress, "progress", false, "show progress on stderr")
}

// ruleEntry is one row of "rules list".
type ruleEntry struct {
	Command   string `json:"command" yaml:"command"`
	Validator string `json:"validator,omitempty" yaml:"validator,omitempty"`
	Details   string `json:"details,omitempty" yaml:"details,omitempty"`
}

// ruleList is the structured output of "rules list".
type ruleList struct {
	Source string      `json:"source" yaml:"source"`
	Count  int         `json:"count" yaml:"count"`
	Rules  []ruleEntry `json:"rules" yaml:"rules"`
}

func runRulesList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(rulesFlags.format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg, rulesFlags.rules, newToolLogger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	list := ruleList{Source: eng.Source().Name()}
	for _, r := range eng.Trie().Rules() {
		entry := ruleEntry{Command: strings.Join(r.Tokens, " ")}
		if r.Validator != nil {
			entry.Validator = r.Validator.Name()
			entry.Details = r.Validator.Description()
		}
		list.Rules = append(list.Rules, entry)
	}
	sort.Slice(list.Rules, func(i, j int) bool { return list.Rules[i].Command < list.Rules[j].Command })
	list.Count = len(list.Rules)

	out := cmd.OutOrStdout()
	switch format {
	case cli.FormatText, cli.FormatCSV:
		table := cli.NewTable("COMMAND", "VALIDATOR", "DETAILS")
		for _, e := range list.Rules {
			table.AddRow(e.Command, e.Validator, e.Details)
		}
		formatter, err := cli.NewFormatter(format)
		if err != nil {
			return err
		}
		if err := formatter.FormatTo(out, table); err != nil {
			return err
		}
		if format == cli.FormatText {
			fmt.Fprintf(out, "\n%s from %s\n", cli.Summary(list.Count, "rule"), list.Source)
		}
		return nil
	default:
		formatter, err := cli.NewFormatter(format)
		if err != nil {
			return err
		}
		return formatter.FormatTo(out, list)
	}
}

func runRulesTest(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(rulesFlags.format)
	if err != nil {
		return err
	}
	formatter, err := cli.NewFormatter(format)
	if err != nil {
		return err
	}

	suite, err := rules.LoadCases(args[0])
	if err != nil {
		return cli.NewCommandError("rules test", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg, rulesFlags.rules, newToolLogger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var results []rules.CaseResult
	if rulesFlags.progress {
		progress := cli.NewProgressReporter(cmd.ErrOrStderr())
		progress.Start(int64(len(suite.Cases)))
		for i, c := range suite.Cases {
			results = append(results, rules.RunCases(ctx, eng, []rules.Case{c})...)
			progress.Update(int64(i + 1))
		}
		progress.Finish()
	} else {
		results = rules.RunCases(ctx, eng, suite.Cases)
	}

	if err := formatter.FormatTo(cmd.OutOrStdout(), results); err != nil {
		return err
	}

	for _, r := range results {
		if !r.Passed {
			return cli.NewExitError(cli.ExitFailure, nil)
		}
	}
	return nil
}
