package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"newnan/cbfirewall/pkg/cli"
	"newnan/cbfirewall/pkg/config"
	"newnan/cbfirewall/pkg/firewall/engine"
	"newnan/cbfirewall/pkg/rules"
	"newnan/cbfirewall/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "cbfirewall",
	Short: "Command-block firewall for Minecraft servers",
	Long: `cbfirewall decides whether a command issued by a command block may run.

Commands are matched against an allow-list of command prefixes. Arguments are
checked by validators that bound coordinates, restrict target selectors,
allow only safe items and limit nested execute chains. Everything that is not
explicitly allowed is blocked and recorded in the audit log.

Configuration is read from the file given with --config. Every setting can be
overridden with a CBF_* environment variable, e.g. CBF_SERVER_LISTEN_ADDRESS.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the status derived from the
// returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || !exitErr.Silent() {
			fmt.Fprintln(os.Stderr, cli.BlockedStyle.Render("Error:"), err)
		}
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and CBF_* environment variables when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads --config with environment overrides and installs it as
// the global configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	config.SetConfig(cfg)
	return cfg, nil
}

// newLogger builds the service logger from the telemetry section. --verbose
// lowers the level to debug.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	lc := logging.FromConfig(cfg.Telemetry.Logging, w)
	if verbose {
		lc.Level = "debug"
	}
	logger, err := logging.New(lc)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

// newToolLogger is the logger for one-shot commands. Only errors reach
// stderr unless --verbose is set.
func newToolLogger(w io.Writer) *slog.Logger {
	level := "error"
	if verbose {
		level = "debug"
	}
	return logging.MustNew(logging.Config{
		Level:  level,
		Format: string(logging.FormatConsole),
		Writer: w,
	})
}

// ruleSource returns the rule file source, or nil for the built-in rules.
// A non-empty override replaces the configured rule file.
func ruleSource(cfg *config.Config, override string, logger *slog.Logger) rules.Source {
	path := cfg.Rules.File
	if override != "" {
		path = override
	}
	if path == "" {
		return nil
	}
	return rules.NewFileSource(path, logger)
}

// newEngine builds an engine for one-shot commands.
func newEngine(cfg *config.Config, rulesFile string, logger *slog.Logger, opts ...engine.Option) (*engine.Engine, error) {
	opts = append([]engine.Option{engine.WithLogger(logger)}, opts...)
	eng, err := engine.NewEngine(cfg.Firewall, ruleSource(cfg, rulesFile, logger), opts...)
	if err != nil {
		return nil, cli.NewCommandError("engine", err)
	}
	return eng, nil
}
