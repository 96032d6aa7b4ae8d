package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"newnan/cbfirewall/pkg/audit"
	"newnan/cbfirewall/pkg/audit/storage"
	"newnan/cbfirewall/pkg/config"
	"newnan/cbfirewall/pkg/firewall/engine"
	"newnan/cbfirewall/pkg/firewall/trie"
	"newnan/cbfirewall/pkg/rules"
	"newnan/cbfirewall/pkg/telemetry/health"
	"newnan/cbfirewall/pkg/telemetry/logging"
	"newnan/cbfirewall/pkg/telemetry/metrics"
)

// flakySource loads once and then fails.
type flakySource struct{ loads int }

func (s *flakySource) Load(ctx context.Context, b *rules.Builder) ([]trie.Rule, error) {
	s.loads++
	if s.loads > 1 {
		return nil, errors.New("rule file unreadable")
	}
	return b.Compile(&rules.File{Rules: []rules.RuleSpec{{Command: "say"}}})
}

func (s *flakySource) Name() string { return "flaky" }

type testEnv struct {
	server  *Server
	engine  *engine.Engine
	store   *storage.MemoryStorage
	metrics *metrics.Collector
}

func newTestEnv(t *testing.T, source rules.Source) *testEnv {
	t.Helper()

	collector := metrics.NewCollector(config.Default().Telemetry.Metrics, prometheus.NewRegistry())
	eng, err := engine.NewEngine(config.Default().Firewall, source,
		engine.WithLogger(logging.Discard()),
		engine.WithMetrics(collector),
	)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	store := storage.NewMemoryStorage()
	checker := health.New(config.HealthConfig{})
	checker.RegisterCheck("engine", health.EngineCheck(eng))
	checker.RegisterCheck("audit_storage", health.StorageCheck(store))

	srv, err := New(config.ServerConfig{ListenAddress: "127.0.0.1:0"}, Deps{
		Engine:  eng,
		Audit:   store,
		Health:  checker,
		Metrics: collector,
		Version: health.NewVersionInfo("test", "none", "unknown"),
		Logger:  logging.Discard(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testEnv{server: srv, engine: eng, store: store, metrics: collector}
}

func (env *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestNew_RequiresEngine(t *testing.T) {
	if _, err := New(config.ServerConfig{}, Deps{}); err == nil {
		t.Error("expected error without an engine")
	}
}

func TestHandleCheck(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name    string
		body    string
		code    int
		allowed bool
		reason  string
	}{
		{"literal", `{"command":"say hello world"}`, http.StatusOK, true, string(trie.ReasonLiteralMatch)},
		{"leading slash", `{"command":"/give @s minecraft:dirt 10","source":"command_block"}`, http.StatusOK, true, string(trie.ReasonValidatorAccepted)},
		{"validator rejects", `{"command":"give @a minecraft:diamond"}`, http.StatusOK, false, string(trie.ReasonValidatorRejected)},
		{"no rule", `{"command":"op alice","x":1,"y":64,"z":-3}`, http.StatusOK, false, string(trie.ReasonNoRule)},
		{"empty command", `{"command":"   "}`, http.StatusBadRequest, false, ""},
		{"malformed", `{"command":`, http.StatusBadRequest, false, ""},
		{"unknown field", `{"cmd":"say hi"}`, http.StatusBadRequest, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/v1/check", tt.body)
			if rr.Code != tt.code {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.code, rr.Body.String())
			}
			if tt.code != http.StatusOK {
				if resp := decode[ErrorResponse](t, rr); resp.Error == "" {
					t.Error("error response has no message")
				}
				return
			}

			resp := decode[CheckResponse](t, rr)
			if resp.Allowed != tt.allowed || resp.Reason != tt.reason {
				t.Errorf("verdict = %v/%q, want %v/%q", resp.Allowed, resp.Reason, tt.allowed, tt.reason)
			}
			if resp.ID == "" {
				t.Error("response has no decision ID")
			}
			if resp.DestroyBlock != !tt.allowed {
				t.Errorf("destroy_block = %v, want %v", resp.DestroyBlock, !tt.allowed)
			}
		})
	}
}

func TestHandleCheck_DestroyBlockDisabled(t *testing.T) {
	cfg := config.Default().Firewall
	cfg.DestroyBlockedCommandBlocks = false
	eng, err := engine.NewEngine(cfg, nil, engine.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	srv, err := New(config.ServerConfig{ListenAddress: "127.0.0.1:0"}, Deps{
		Engine: eng,
		Logger: logging.Discard(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/check", strings.NewReader(`{"command":"op alice"}`))
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "destroy_block") {
		t.Errorf("body = %s, want no destroy_block when disabled", rr.Body.String())
	}
	if resp := decode[CheckResponse](t, rr); resp.Allowed {
		t.Error("op alice should still be blocked")
	}
}

func TestHandleCheck_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, nil)

	body := `{"command":"say ` + strings.Repeat("a", maxBodyBytes) + `"}`
	rr := env.do(t, http.MethodPost, "/v1/check", body)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rr.Code)
	}
}

func TestHandleCheck_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/v1/check", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

func TestHandleRules(t *testing.T) {
	env := newTestEnv(t, rules.NewMemorySource(
		rules.RuleSpec{Command: "say"},
		rules.RuleSpec{Command: "time query"},
	))

	rr := env.do(t, http.MethodGet, "/v1/rules", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	resp := decode[RulesResponse](t, rr)
	if resp.Source != "memory" {
		t.Errorf("source = %q, want memory", resp.Source)
	}
	if resp.Count != 2 || len(resp.Rules) != 2 {
		t.Errorf("rules = %v, want 2 rules", resp.Rules)
	}
}

func TestHandleStats(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodPost, "/v1/check", `{"command":"say hi"}`)
	env.do(t, http.MethodPost, "/v1/check", `{"command":"op alice"}`)
	env.do(t, http.MethodPost, "/v1/check", `{"command":"op bob"}`)

	rr := env.do(t, http.MethodGet, "/v1/stats", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	stats := decode[engine.Stats](t, rr)
	if stats.Checked != 3 || stats.Allowed != 1 || stats.Blocked != 2 {
		t.Errorf("counters = %d/%d/%d, want 3/1/2", stats.Checked, stats.Allowed, stats.Blocked)
	}
	if len(stats.TopBlocked) != 1 || stats.TopBlocked[0].Command != "op" || stats.TopBlocked[0].Count != 2 {
		t.Errorf("top blocked = %+v", stats.TopBlocked)
	}
	if stats.Trie.TotalValidations != 3 {
		t.Errorf("trie validations = %d, want 3", stats.Trie.TotalValidations)
	}
}

func TestHandleReload(t *testing.T) {
	env := newTestEnv(t, &flakySource{})

	rr := env.do(t, http.MethodPost, "/v1/reload", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); !strings.Contains(resp.Error, "rule file unreadable") {
		t.Errorf("error = %q", resp.Error)
	}

	// The rules from the first load stay live.
	rr = env.do(t, http.MethodPost, "/v1/check", `{"command":"say still here"}`)
	if resp := decode[CheckResponse](t, rr); !resp.Allowed {
		t.Error("rules lost after failed reload")
	}
}

func TestHandleReload_Success(t *testing.T) {
	source := rules.NewMemorySource(rules.RuleSpec{Command: "say"})
	env := newTestEnv(t, source)

	source.SetRules(rules.RuleSpec{Command: "say"}, rules.RuleSpec{Command: "tell"})
	rr := env.do(t, http.MethodPost, "/v1/reload", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if resp := decode[ReloadResponse](t, rr); resp.Rules != 2 {
		t.Errorf("rules = %d, want 2", resp.Rules)
	}
}

func TestHandleAudit(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	records := []*audit.Record{
		{ID: "a", Timestamp: now.Add(-2 * time.Hour), Source: "command_block", Command: "op alice", Reason: "no matching rule"},
		{ID: "b", Timestamp: now.Add(-time.Minute), Source: "command_block", Command: "op bob", Reason: "no matching rule"},
		{ID: "c", Timestamp: now, Source: "plugin", Command: "say hi", Allowed: true, Reason: "matched literal rule"},
	}
	for _, r := range records {
		if err := env.store.Store(ctx, r); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}

	tests := []struct {
		name    string
		query   url.Values
		code    int
		total   int64
		wantIDs []string
	}{
		{"all", url.Values{}, http.StatusOK, 3, []string{"c", "b", "a"}},
		{"blocked", url.Values{"allowed": {"false"}}, http.StatusOK, 2, []string{"b", "a"}},
		{"by source", url.Values{"source": {"plugin"}}, http.StatusOK, 1, []string{"c"}},
		{"since", url.Values{"since": {"1h"}, "order": {"asc"}}, http.StatusOK, 2, []string{"b", "c"}},
		{"paged", url.Values{"limit": {"1"}, "offset": {"1"}}, http.StatusOK, 3, []string{"b"}},
		{"bad limit", url.Values{"limit": {"many"}}, http.StatusBadRequest, 0, nil},
		{"limit too high", url.Values{"limit": {"100000"}}, http.StatusBadRequest, 0, nil},
		{"bad order", url.Values{"order": {"sideways"}}, http.StatusBadRequest, 0, nil},
		{"bad since", url.Values{"since": {"-5m"}}, http.StatusBadRequest, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, "/v1/audit?"+tt.query.Encode(), "")
			if rr.Code != tt.code {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.code, rr.Body.String())
			}
			if tt.code != http.StatusOK {
				return
			}

			resp := decode[AuditResponse](t, rr)
			if resp.Total != tt.total {
				t.Errorf("total = %d, want %d", resp.Total, tt.total)
			}
			var ids []string
			for _, r := range resp.Records {
				ids = append(ids, r.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	if rr := env.do(t, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Errorf("/health status = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/ready", ""); rr.Code != http.StatusOK {
		t.Errorf("/ready status = %d: %s", rr.Code, rr.Body.String())
	}

	env.engine.SetEnabled(false)
	rr := env.do(t, http.MethodGet, "/ready", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("/ready while disabled status = %d, want 503", rr.Code)
	}

	if rr := env.do(t, http.MethodGet, "/version", ""); rr.Code != http.StatusOK {
		t.Errorf("/version status = %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodPost, "/v1/check", `{"command":"op alice"}`)
	env.do(t, http.MethodGet, "/v1/rules", "")

	rr := env.do(t, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rr.Code)
	}

	body := rr.Body.String()
	for _, want := range []string{
		`cbfirewall_checks_total{decision="block",reason="no matching rule"} 1`,
		`cbfirewall_blocked_commands_total{command="op"} 1`,
		`cbfirewall_http_requests_total{code="200",handler="check",method="POST"} 1`,
		`cbfirewall_http_requests_total{code="200",handler="rules",method="GET"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "plugin-7")
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)
	if got := rr.Header().Get(RequestIDHeader); got != "plugin-7" {
		t.Errorf("%s = %q, want plugin-7", RequestIDHeader, got)
	}

	rr = env.do(t, http.MethodGet, "/health", "")
	if got := rr.Header().Get(RequestIDHeader); len(got) != 36 {
		t.Errorf("generated request ID = %q, want a UUID", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Error != "internal error" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestServer_StartShutdown(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- env.server.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for env.server.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !env.server.IsRunning() {
		t.Error("IsRunning() = false after start")
	}

	url := fmt.Sprintf("http://%s/v1/check", env.server.Addr())
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(`{"command":"say hi"}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := env.server.Start(ctx); err == nil {
		t.Error("expected error starting twice")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	if env.server.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func TestParseAuditQuery(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	q, err := parseAuditQuery(url.Values{
		"limit":   {"5"},
		"allowed": {"true"},
		"since":   {"30m"},
		"command": {"give"},
	}, now)
	if err != nil {
		t.Fatalf("parseAuditQuery() error = %v", err)
	}
	if q.Limit != 5 || q.Allowed == nil || !*q.Allowed || q.Command != "give" {
		t.Errorf("query = %+v", q)
	}
	if q.StartTime == nil || !q.StartTime.Equal(now.Add(-30*time.Minute)) {
		t.Errorf("start time = %v", q.StartTime)
	}

	if _, err := parseAuditQuery(url.Values{"allowed": {"maybe"}}, now); err == nil {
		t.Error("expected error for invalid allowed")
	}
}
