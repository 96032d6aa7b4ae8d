package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"newnan/cbfirewall/pkg/audit"
	"newnan/cbfirewall/pkg/audit/export"
	"newnan/cbfirewall/pkg/audit/retention"
	"newnan/cbfirewall/pkg/audit/storage"
	"newnan/cbfirewall/pkg/cli"
	"newnan/cbfirewall/pkg/config"
)

var errMemoryBackend = errors.New("audit backend is memory; records only exist inside a running server (GET /v1/audit)")

var auditFlags struct {
	source  string
	world   string
	command string
	allowed bool
	blocked bool
	since   time.Duration
	limit   int
	offset  int
	order   string
	format  string
	output  string

	maxAge     time.Duration
	maxRecords int
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query and prune the audit log",
	Long: `Query and maintain the audit log of firewall decisions.

Subcommands:
  query  - Query audit records with filters
  prune  - Apply the retention policy now

The audit commands open the database configured under audit.sqlite. With the
memory backend records are only available from a running server.`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit records",
	Long: `Query audit records with filters. Results are newest first.

Examples:
  # Blocked commands of the last 24 hours
  cbfirewall audit query --blocked --since 24h

  # Commands from one command block, as CSV
  cbfirewall audit query --source spawn_block --format csv --output spawn.csv

  # Every record mentioning "summon"
  cbfirewall audit query --command summon --limit 500 --format jsonl`,
	Args: cobra.NoArgs,
	RunE: runAuditQuery,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records beyond the retention limits",
	Long: `Delete records older than audit.retention.max_age, then the oldest records
beyond audit.retention.max_records.

Examples:
  # Apply the configured policy
  cbfirewall audit prune

  # Keep one week and at most 10000 records
  cbfirewall audit prune --max-age 168h --max-records 10000`,
	Args: cobra.NoArgs,
	RunE: runAuditPrune,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd)
	auditCmd.AddCommand(auditPruneCmd)

	f := auditQueryCmd.Flags()
	f.StringVar(&auditFlags.source, "source", "", "filter by command source")
	f.StringVar(&auditFlags.world, "world", "", "filter by world")
	f.StringVar(&auditFlags.command, "command", "", "filter by command substring (case-insensitive)")
	f.BoolVar(&auditFlags.allowed, "allowed", false, "only allowed commands")
	f.BoolVar(&auditFlags.blocked, "blocked", false, "only blocked commands")
	f.DurationVar(&auditFlags.since, "since", 0, "only records newer than this, e.g. 24h")
	f.IntVar(&auditFlags.limit, "limit", audit.DefaultLimit, "maximum number of records")
	f.IntVar(&auditFlags.offset, "offset", 0, "skip this many records")
	f.StringVar(&auditFlags.order, "order", audit.SortDesc, "sort order: asc, desc")
	f.StringVarP(&auditFlags.format, "format", "f", "text", "output format: text, "+joinFormats())
	f.StringVarP(&auditFlags.output, "output", "o", "", "write to file instead of stdout")
	auditQueryCmd.MarkFlagsMutuallyExclusive("allowed", "blocked")

	auditPruneCmd.Flags().DurationVar(&auditFlags.maxAge, "max-age", 0, "override audit.retention.max_age")
	auditPruneCmd.Flags().IntVar(&auditFlags.maxRecords, "max-records", 0, "override audit.retention.max_records")
}

func joinFormats() string {
	return strings.Join(export.Formats, ", ")
}

// openAuditStorage opens the configured backend for offline use.
func openAuditStorage(cfg *config.Config) (audit.Storage, error) {
	if cfg.Audit.Backend == storage.BackendMemory || cfg.Audit.Backend == "" {
		return nil, errMemoryBackend
	}
	return storage.New(cfg.Audit, newToolLogger(os.Stderr))
}

// buildAuditQuery turns the query flags into an audit.Query.
func buildAuditQuery(now time.Time) (*audit.Query, error) {
	q := &audit.Query{
		Source:    auditFlags.source,
		World:     auditFlags.world,
		Command:   auditFlags.command,
		Limit:     auditFlags.limit,
		Offset:    auditFlags.offset,
		SortOrder: auditFlags.order,
	}
	switch {
	case auditFlags.allowed && auditFlags.blocked:
		return nil, errors.New("--allowed and --blocked are mutually exclusive")
	case auditFlags.allowed:
		v := true
		q.Allowed = &v
	case auditFlags.blocked:
		v := false
		q.Allowed = &v
	}
	if auditFlags.since < 0 {
		return nil, fmt.Errorf("--since must be positive, got %s", auditFlags.since)
	}
	if auditFlags.since > 0 {
		start := now.Add(-auditFlags.since)
		q.StartTime = &start
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	query, err := buildAuditQuery(time.Now())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openAuditStorage(cfg)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	records, err := store.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if auditFlags.output != "" {
		file, err := os.Create(auditFlags.output)
		if err != nil {
			return cli.NewCommandError("audit query", err)
		}
		defer file.Close()
		out = file
	}

	if format, err := cli.ParseFormat(auditFlags.format); err == nil && format == cli.FormatText {
		total, err := store.Count(ctx, query)
		if err != nil {
			return cli.NewCommandError("audit query", err)
		}
		formatter, _ := cli.NewFormatter(cli.FormatText)
		if err := formatter.FormatTo(out, records); err != nil {
			return err
		}
		if len(records) > 0 {
			fmt.Fprintf(out, "\n%s of %d\n", cli.Summary(len(records), "record"), total)
		}
		return nil
	}

	exporter, err := export.New(auditFlags.format)
	if err != nil {
		return err
	}
	if err := exporter.Export(ctx, records, out); err != nil {
		return cli.NewCommandError("audit query", err)
	}
	if auditFlags.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s Wrote %s to %s\n",
			cli.AllowedStyle.Render("✓"), cli.Summary(len(records), "record"), auditFlags.output)
	}
	return nil
}

func runAuditPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	retentionCfg := cfg.Audit.Retention
	if auditFlags.maxAge != 0 {
		retentionCfg.MaxAge = auditFlags.maxAge
	}
	if auditFlags.maxRecords != 0 {
		retentionCfg.MaxRecords = auditFlags.maxRecords
	}

	store, err := openAuditStorage(cfg)
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	defer store.Close()

	pruner := retention.NewPruner(store, retentionCfg, newToolLogger(cmd.ErrOrStderr()))
	result, err := pruner.Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Pruned %d records (%d by age, %d by count)\n",
		cli.AllowedStyle.Render("✓"), result.Total(), result.ByAge, result.ByCount)
	return nil
}
