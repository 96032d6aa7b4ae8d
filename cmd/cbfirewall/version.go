package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"newnan/cbfirewall/pkg/cli"
	"newnan/cbfirewall/pkg/telemetry/health"
)

var (
	// Version is the semantic version (set by build flags)
	Version = "0.1.0"
	// GitCommit is the git commit hash (set by build flags)
	GitCommit = "unknown"
	// BuildDate is the build timestamp (set by build flags)
	BuildDate = "unknown"
)

var versionFlags struct {
	format string
	short  bool
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including Git commit and build date.`,
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVar(&versionFlags.format, "format", "text", "output format: text, json, yaml")
	versionCmd.Flags().BoolVar(&versionFlags.short, "short", false, "print the version number only")
}

func versionInfo() health.VersionInfo {
	return health.NewVersionInfo(Version, GitCommit, BuildDate)
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	info := versionInfo()

	if versionFlags.short {
		fmt.Fprintln(out, info.Version)
		return nil
	}

	format, err := cli.ParseFormat(versionFlags.format)
	if err != nil {
		return err
	}
	if format != cli.FormatText {
		formatter, err := cli.NewFormatter(format)
		if err != nil {
			return err
		}
		return formatter.FormatTo(out, info)
	}

	fmt.Fprintf(out, "%s %s\n", cli.TitleStyle.Render("cbfirewall"), info.Version)
	fmt.Fprintf(out, "Git Commit: %s\n", info.Commit)
	fmt.Fprintf(out, "Build Date: %s\n", info.BuildTime)
	fmt.Fprintf(out, "Go Version: %s\n", info.GoVersion)
	fmt.Fprintf(out, "OS/Arch: %s\n", info.Platform)
	return nil
}
