/*
Package cli provides command-line helpers for the cbfirewall command.

Output Formatting:

Command results are written through a Formatter. Text output is styled with
lipgloss; JSON and YAML encode the value as is; CSV accepts a *Table.

	formatter, err := cli.NewFormatter(cli.FormatText)
	if err != nil {
		return err
	}
	if err := formatter.FormatTo(os.Stdout, decision); err != nil {
		return err
	}

The text formatter knows how to render decisions, engine statistics, rule
test results and tables. Anything else is printed with %v.

Progress Reporting:

Long case runs can report progress to stderr:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(int64(len(cases)))
	for i := range cases {
		// Check the case
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

Exit Codes:

Commands return an *ExitError to exit with a specific status, for example
when "cbfirewall check" blocks a command. ExitCode maps any error to the
process exit status.
*/
package cli
