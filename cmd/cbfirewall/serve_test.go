package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newnan/cbfirewall/pkg/config"
	"newnan/cbfirewall/pkg/firewall/engine"
	"newnan/cbfirewall/pkg/telemetry/logging"
)

func TestStartServices(t *testing.T) {
	cfg := config.Default()
	cfg.Audit.Retention.Schedule = "0 4 * * *"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := startServices(ctx, cfg, logging.Discard())
	if err != nil {
		t.Fatalf("startServices() error = %v", err)
	}
	defer svc.close()

	if svc.store == nil || svc.recorder == nil {
		t.Fatal("audit storage and recorder should be created when audit is enabled")
	}
	if !svc.scheduler.IsRunning() {
		t.Error("retention scheduler should be running")
	}
	if svc.watcher != nil {
		t.Error("no watcher without a rule file")
	}

	checks := strings.Join(svc.health.ListChecks(), ",")
	for _, name := range []string{"engine", "audit_storage", "retention_scheduler"} {
		if !strings.Contains(checks, name) {
			t.Errorf("health checks = %s, want %s", checks, name)
		}
	}
	if status := svc.health.CheckReadiness(ctx); !status.Ready() {
		t.Errorf("readiness = %+v, want ready", status)
	}

	d, err := svc.engine.Check(ctx, engine.Request{Command: "op alice", Source: "command_block"})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if d.Allowed {
		t.Error("op should be blocked by the default rules")
	}

	// The blocked command reaches storage through the async recorder
	deadline := time.Now().Add(2 * time.Second)
	for svc.recorder.Stats().Written == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("recorder stats = %+v, want one written record", svc.recorder.Stats())
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec := httptest.NewRecorder()
	svc.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "cbfirewall_checks_total") {
		t.Error("metrics should include the check counter")
	}
}

func TestStartServicesWatcher(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Audit.Enabled = false
	cfg.Rules.File = writeFile(t, dir, "rules.yaml", "rules:\n  - command: say\n")
	cfg.Rules.Watch = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := startServices(ctx, cfg, logging.Discard())
	if err != nil {
		t.Fatalf("startServices() error = %v", err)
	}
	defer svc.close()

	if svc.store != nil || svc.recorder != nil || svc.scheduler != nil {
		t.Error("audit components should not be created when audit is disabled")
	}
	if svc.watcher == nil {
		t.Fatal("watcher should be created for a watched rule file")
	}
	if got := svc.engine.Rules(); len(got) != 1 || got[0] != "say" {
		t.Errorf("rules = %v, want [say]", got)
	}
}

func TestStartServicesBadRules(t *testing.T) {
	cfg := config.Default()
	cfg.Rules.File = "/nonexistent/rules.yaml"

	if _, err := startServices(context.Background(), cfg, logging.Discard()); err == nil {
		t.Error("startServices() with a missing rule file should fail")
	}
}

func TestRunServeDryRun(t *testing.T) {
	useConfig(t, "telemetry:\n  logging:\n    level: error\n")
	old := serveFlags
	t.Cleanup(func() { serveFlags = old })
	serveFlags.dryRun = true
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	cmd, stdout, _ := testCmd("")
	if err := runServe(cmd, nil); err != nil {
		t.Fatalf("runServe() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "Configuration valid") || !strings.Contains(stdout.String(), "from default") {
		t.Errorf("output = %q", stdout.String())
	}
}

func TestPrintBanner(t *testing.T) {
	cfg := config.Default()
	cfg.Audit.Enabled = false
	cfg.Firewall.Enabled = false

	svc, err := startServices(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("startServices() error = %v", err)
	}
	defer svc.close()

	var buf bytes.Buffer
	printBanner(&buf, cfg, svc)
	for _, want := range []string{"Rules loaded", "Firewall disabled", "http://127.0.0.1:8765", "/metrics"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("banner = %q, want it to contain %q", buf.String(), want)
		}
	}
}
