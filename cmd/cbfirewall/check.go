package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"newnan/cbfirewall/pkg/audit"
	"newnan/cbfirewall/pkg/cli"
	"newnan/cbfirewall/pkg/firewall/engine"
)

var checkFlags struct {
	rules    string
	source   string
	world    string
	position string
	format   string
}

var checkCmd = &cobra.Command{
	Use:   "check [command]",
	Short: "Check commands against the firewall rules",
	Long: `Check one command, or one command per line read from stdin.

The exit status is 0 when every command is allowed and 1 when at least one
is blocked. Blank lines and lines starting with # are skipped in stdin mode.

Examples:
  # Check a single command
  cbfirewall check "give @s minecraft:dirt 10"

  # Check against a rule file
  cbfirewall check --rules rules.yaml "tp @s 10 64 10"

  # Check a list of commands
  cbfirewall check < commands.txt

  # JSON output
  cbfirewall check --format json "op alice"`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkFlags.rules, "rules", "", "rule file (overrides rules.file)")
	checkCmd.Flags().StringVar(&checkFlags.source, "source", "cli", "command source recorded with the decision")
	checkCmd.Flags().StringVar(&checkFlags.world, "world", "", "world the command runs in")
	checkCmd.Flags().StringVar(&checkFlags.position, "pos", "", "issuing block position as x,y,z")
	checkCmd.Flags().StringVarP(&checkFlags.format, "format", "f", "text", "output format: text, json, yaml")
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(checkFlags.format)
	if err != nil {
		return err
	}
	formatter, err := cli.NewFormatter(format)
	if err != nil {
		return err
	}
	pos, err := parsePosition(checkFlags.position)
	if err != nil {
		return err
	}

	commands := []string{strings.Join(args, " ")}
	if len(args) == 0 {
		commands, err = readCommands(cmd.InOrStdin())
		if err != nil {
			return cli.NewCommandError("check", err)
		}
		if len(commands) == 0 {
			return fmt.Errorf("no commands given")
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newToolLogger(cmd.ErrOrStderr())
	eng, err := newEngine(cfg, checkFlags.rules, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	decisions := make([]*engine.Decision, 0, len(commands))
	blocked := 0
	for _, command := range commands {
		d, err := eng.Check(ctx, engine.Request{
			Command:  command,
			Source:   checkFlags.source,
			World:    checkFlags.world,
			Position: pos,
		})
		if err != nil {
			return cli.NewCommandError("check", err)
		}
		if !d.Allowed {
			blocked++
		}
		decisions = append(decisions, d)
		if format == cli.FormatText {
			if err := formatter.FormatTo(out, d); err != nil {
				return err
			}
		}
	}

	if format != cli.FormatText {
		var data any = decisions
		if len(decisions) == 1 {
			data = decisions[0]
		}
		if err := formatter.FormatTo(out, data); err != nil {
			return err
		}
	} else if len(decisions) > 1 {
		fmt.Fprintf(out, "\n%s, %d blocked\n", cli.Summary(len(decisions), "command"), blocked)
	}

	if blocked > 0 {
		return cli.NewExitError(cli.ExitFailure, nil)
	}
	return nil
}

// readCommands returns the non-empty, non-comment lines of r.
func readCommands(r io.Reader) ([]string, error) {
	var commands []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		commands = append(commands, line)
	}
	return commands, scanner.Err()
}

// parsePosition parses "x,y,z". An empty string is no position.
func parsePosition(s string) (*audit.Position, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid position %q (expected x,y,z)", s)
	}
	var xyz [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid position %q: %w", s, err)
		}
		xyz[i] = v
	}
	return &audit.Position{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}
