package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"newnan/cbfirewall/pkg/audit"
	"newnan/cbfirewall/pkg/audit/recorder"
	"newnan/cbfirewall/pkg/audit/retention"
	"newnan/cbfirewall/pkg/audit/storage"
	"newnan/cbfirewall/pkg/cli"
	"newnan/cbfirewall/pkg/config"
	"newnan/cbfirewall/pkg/firewall/engine"
	"newnan/cbfirewall/pkg/rules"
	"newnan/cbfirewall/pkg/server"
	"newnan/cbfirewall/pkg/telemetry/health"
	"newnan/cbfirewall/pkg/telemetry/metrics"
	"newnan/cbfirewall/pkg/telemetry/tracing"
)

const telemetryFlushTimeout = 5 * time.Second

var serveFlags struct {
	listenAddress string
	logLevel      string
	rules         string
	watch         bool
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP decision server",
	Long: `Start the HTTP decision server with the specified configuration.

The server answers POST /v1/check for every command a command block is about
to run, records blocked commands in the audit log, exposes Prometheus metrics
and reloads the rule file when it changes.

Examples:
  # Start with the built-in rules
  cbfirewall serve

  # Start with a config file and watch the rule file
  cbfirewall serve --config /etc/cbfirewall/config.yaml --watch

  # Override listen address
  cbfirewall serve --listen 0.0.0.0:8765

  # Validate config and rules without starting the server
  cbfirewall serve --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&serveFlags.rules, "rules", "", "rule file (overrides rules.file)")
	serveCmd.Flags().BoolVar(&serveFlags.watch, "watch", false, "reload the rule file when it changes")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config and rules without starting the server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply flag overrides
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}
	if serveFlags.rules != "" {
		cfg.Rules.File = serveFlags.rules
	}
	if serveFlags.watch {
		cfg.Rules.Watch = true
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	if serveFlags.dryRun {
		eng, err := newEngine(cfg, "", logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s Configuration valid (%d rules from %s)\n",
			cli.AllowedStyle.Render("✓"), len(eng.Rules()), eng.Source().Name())
		return nil
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	svc, err := startServices(ctx, cfg, logger)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer svc.close()

	srv, err := server.New(cfg.Server, server.Deps{
		Engine:      svc.engine,
		Audit:       svc.store,
		Health:      svc.health,
		Metrics:     svc.metrics,
		Tracer:      svc.tracer,
		Version:     versionInfo(),
		Logger:      logger,
		MetricsPath: cfg.Telemetry.Metrics.Path,
	})
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	printBanner(out, cfg, svc)

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	fmt.Fprintf(out, "%s Server stopped\n", cli.AllowedStyle.Render("✓"))
	return nil
}

// services are the long-lived components behind the decision server.
type services struct {
	engine    *engine.Engine
	store     audit.Storage
	recorder  *recorder.Recorder
	scheduler *retention.Scheduler
	watcher   *rules.Watcher
	metrics   *metrics.Collector
	tracer    *tracing.Tracer
	health    *health.Checker
	logger    *slog.Logger
}

// startServices builds every component in dependency order. On error the
// components created so far are released.
func startServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (svc *services, err error) {
	svc = &services{
		metrics: metrics.NewCollector(cfg.Telemetry.Metrics, nil),
		health:  health.New(cfg.Telemetry.Health),
		logger:  logger,
	}
	defer func() {
		if err != nil {
			svc.close()
			svc = nil
		}
	}()

	svc.tracer, err = tracing.New(cfg.Telemetry.Tracing, tracing.WithVersion(Version))
	if err != nil {
		return svc, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithMetrics(svc.metrics),
		engine.WithTracer(svc.tracer),
	}

	if cfg.Audit.Enabled {
		svc.store, err = storage.New(cfg.Audit, logger)
		if err != nil {
			return svc, fmt.Errorf("failed to open audit storage: %w", err)
		}
		if p, ok := svc.store.(storage.Pinger); ok {
			svc.health.RegisterCheck("audit_storage", health.StorageCheck(p))
		}

		svc.recorder = recorder.NewRecorder(svc.store, recorder.FromAuditConfig(cfg.Audit), logger)
		if err := svc.metrics.ObserveRecorder(svc.recorder); err != nil {
			logger.Warn("failed to register recorder metrics", "error", err)
		}
		opts = append(opts, engine.WithRecorder(svc.recorder))

		pruner := retention.NewPruner(svc.store, cfg.Audit.Retention, logger,
			retention.WithMetrics(svc.metrics),
			retention.WithTracer(svc.tracer),
		)
		svc.scheduler = retention.NewScheduler(pruner, logger)
		if err := svc.scheduler.Start(ctx); err != nil {
			return svc, fmt.Errorf("failed to start retention scheduler: %w", err)
		}
		if svc.scheduler.IsRunning() {
			svc.health.RegisterCheck("retention_scheduler", health.RunningCheck("retention scheduler", svc.scheduler))
		}
	}

	svc.engine, err = engine.NewEngine(cfg.Firewall, ruleSource(cfg, "", logger), opts...)
	if err != nil {
		return svc, err
	}
	svc.health.RegisterCheck("engine", health.EngineCheck(svc.engine))

	if cfg.Rules.Watch && cfg.Rules.File != "" {
		svc.watcher, err = rules.NewWatcher(rules.WatcherConfig{
			Path:     cfg.Rules.File,
			Debounce: cfg.Rules.Debounce,
		}, logger)
		if err != nil {
			return svc, err
		}
		go func() {
			if err := svc.watcher.Watch(ctx, func() error { return svc.engine.Reload(ctx) }); err != nil {
				logger.Error("rule watcher stopped", "error", err)
			}
		}()
	} else if cfg.Rules.Watch {
		logger.Warn("rules.watch is set but no rule file is configured")
	}

	return svc, nil
}

// close stops the components in reverse start order. The recorder drains
// its queue before the storage is closed.
func (s *services) close() {
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn("failed to stop rule watcher", "error", err)
		}
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			s.logger.Warn("failed to close audit recorder", "error", err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("failed to close audit storage", "error", err)
		}
	}
	if s.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := s.tracer.Shutdown(ctx); err != nil {
			s.logger.Warn("failed to flush traces", "error", err)
		}
	}
}

func printBanner(w io.Writer, cfg *config.Config, svc *services) {
	ok := cli.AllowedStyle.Render("✓")
	addr := cfg.Server.ListenAddress

	fmt.Fprintf(w, "%s %s\n", cli.TitleStyle.Render("cbfirewall"), Version)
	fmt.Fprintf(w, "%s Rules loaded (%d from %s)\n", ok, len(svc.engine.Rules()), svc.engine.Source().Name())
	if !cfg.Firewall.Enabled {
		fmt.Fprintf(w, "%s Firewall disabled, every command is allowed\n", cli.WarningStyle.Render("!"))
	}
	if svc.store != nil {
		fmt.Fprintf(w, "%s Audit log (%s backend)\n", ok, cfg.Audit.Backend)
	}
	if svc.watcher != nil {
		fmt.Fprintf(w, "%s Watching %s\n", ok, svc.watcher.Path())
	}
	if svc.tracer.Enabled() {
		fmt.Fprintf(w, "%s Tracing to %s\n", ok, cfg.Telemetry.Tracing.Endpoint)
	}
	fmt.Fprintf(w, "%s Listening on %s\n", ok, cli.CommandStyle.Render("http://"+addr))
	fmt.Fprintf(w, "%s Check endpoint: http://%s/v1/check\n", ok, addr)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(w, "%s Metrics endpoint: http://%s%s\n", ok, addr, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(w, cli.MutedStyle.Render("\nPress Ctrl+C to stop"))
}
