package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"newnan/cbfirewall/pkg/audit"
	"newnan/cbfirewall/pkg/audit/storage"
	"newnan/cbfirewall/pkg/config"
)

func resetAuditFlags(t *testing.T) {
	t.Helper()
	old := auditFlags
	auditFlags.source = ""
	auditFlags.world = ""
	auditFlags.command = ""
	auditFlags.allowed = false
	auditFlags.blocked = false
	auditFlags.since = 0
	auditFlags.limit = audit.DefaultLimit
	auditFlags.offset = 0
	auditFlags.order = audit.SortDesc
	auditFlags.format = "text"
	auditFlags.output = ""
	auditFlags.maxAge = 0
	auditFlags.maxRecords = 0
	t.Cleanup(func() { auditFlags = old })
}

// sqliteConfig writes a config using a SQLite audit database in a temp dir
// and seeds it with one record per age; even indexes are blocked.
func sqliteConfig(t *testing.T, ages ...time.Duration) (dir, dbPath string) {
	t.Helper()
	dir = t.TempDir()
	dbPath = filepath.Join(dir, "audit.db")
	cfgPath := writeFile(t, dir, "config.yaml", fmt.Sprintf("audit:\n  backend: sqlite\n  sqlite:\n    path: %q\n", dbPath))

	old := cfgFile
	cfgFile = cfgPath
	t.Cleanup(func() { cfgFile = old })

	store, err := storage.NewSQLiteStorage(config.SQLiteConfig{Path: dbPath}, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	defer store.Close()

	now := time.Now()
	for i, age := range ages {
		r := &audit.Record{
			ID:        fmt.Sprintf("r%02d", i),
			Timestamp: now.Add(-age),
			Source:    "command_block",
			Command:   fmt.Sprintf("summon minecraft:pig %d 64 0", i),
			Allowed:   i%2 == 1,
			Reason:    "test",
		}
		if err := store.Store(context.Background(), r); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}
	return dir, dbPath
}

func TestBuildAuditQuery(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		set     func()
		check   func(t *testing.T, q *audit.Query)
		wantErr bool
	}{
		{
			name: "defaults",
			set:  func() {},
			check: func(t *testing.T, q *audit.Query) {
				if q.Allowed != nil || q.StartTime != nil || q.Limit != audit.DefaultLimit {
					t.Errorf("query = %+v", q)
				}
			},
		},
		{
			name: "blocked since",
			set: func() {
				auditFlags.blocked = true
				auditFlags.since = time.Hour
			},
			check: func(t *testing.T, q *audit.Query) {
				if q.Allowed == nil || *q.Allowed {
					t.Error("Allowed should be false")
				}
				if q.StartTime == nil || !q.StartTime.Equal(now.Add(-time.Hour)) {
					t.Errorf("StartTime = %v", q.StartTime)
				}
			},
		},
		{
			name: "allowed",
			set:  func() { auditFlags.allowed = true },
			check: func(t *testing.T, q *audit.Query) {
				if q.Allowed == nil || !*q.Allowed {
					t.Error("Allowed should be true")
				}
			},
		},
		{name: "both verdicts", set: func() { auditFlags.allowed, auditFlags.blocked = true, true }, wantErr: true},
		{name: "negative since", set: func() { auditFlags.since = -time.Minute }, wantErr: true},
		{name: "bad order", set: func() { auditFlags.order = "sideways" }, wantErr: true},
		{name: "limit too large", set: func() { auditFlags.limit = audit.MaxLimit + 1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetAuditFlags(t)
			tt.set()

			q, err := buildAuditQuery(now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("buildAuditQuery() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, q)
			}
		})
	}
}

func TestRunAuditQueryMemoryBackend(t *testing.T) {
	useConfig(t, "")
	resetAuditFlags(t)

	cmd, _, _ := testCmd("")
	err := runAuditQuery(cmd, nil)
	if !errors.Is(err, errMemoryBackend) {
		t.Errorf("runAuditQuery() error = %v, want errMemoryBackend", err)
	}
}

func TestRunAuditQuerySQLite(t *testing.T) {
	sqliteConfig(t, 3*time.Hour, 2*time.Hour, time.Hour, time.Minute)

	t.Run("json blocked", func(t *testing.T) {
		resetAuditFlags(t)
		auditFlags.blocked = true
		auditFlags.format = "json"

		cmd, stdout, _ := testCmd("")
		if err := runAuditQuery(cmd, nil); err != nil {
			t.Fatalf("runAuditQuery() error = %v", err)
		}

		var records []audit.Record
		if err := json.Unmarshal(stdout.Bytes(), &records); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
		}
		if len(records) != 2 {
			t.Fatalf("records = %d, want 2", len(records))
		}
		if records[0].ID != "r02" || records[1].ID != "r00" {
			t.Errorf("order = %s, %s; want newest first", records[0].ID, records[1].ID)
		}
	})

	t.Run("text with limit", func(t *testing.T) {
		resetAuditFlags(t)
		auditFlags.limit = 1

		cmd, stdout, _ := testCmd("")
		if err := runAuditQuery(cmd, nil); err != nil {
			t.Fatalf("runAuditQuery() error = %v", err)
		}
		out := stdout.String()
		for _, want := range []string{"VERDICT", "summon minecraft:pig 3 64 0", "1 record of 4"} {
			if !strings.Contains(out, want) {
				t.Errorf("output = %q, want it to contain %q", out, want)
			}
		}
	})

	t.Run("csv to file", func(t *testing.T) {
		resetAuditFlags(t)
		auditFlags.format = "csv"
		auditFlags.output = filepath.Join(t.TempDir(), "out.csv")

		cmd, stdout, stderr := testCmd("")
		if err := runAuditQuery(cmd, nil); err != nil {
			t.Fatalf("runAuditQuery() error = %v", err)
		}
		if stdout.Len() != 0 {
			t.Errorf("stdout = %q, want nothing when writing to a file", stdout.String())
		}
		if !strings.Contains(stderr.String(), "4 records") {
			t.Errorf("stderr = %q, want a summary", stderr.String())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		resetAuditFlags(t)
		auditFlags.format = "xml"

		cmd, _, _ := testCmd("")
		if err := runAuditQuery(cmd, nil); err == nil {
			t.Error("runAuditQuery() with unknown format should fail")
		}
	})
}

func TestRunAuditPrune(t *testing.T) {
	_, dbPath := sqliteConfig(t, 48*time.Hour, 30*time.Hour, time.Hour, time.Minute)
	resetAuditFlags(t)
	auditFlags.maxAge = 24 * time.Hour
	auditFlags.maxRecords = 1

	cmd, stdout, _ := testCmd("")
	if err := runAuditPrune(cmd, nil); err != nil {
		t.Fatalf("runAuditPrune() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "Pruned 3 records (2 by age, 1 by count)") {
		t.Errorf("output = %q", stdout.String())
	}

	store, err := storage.NewSQLiteStorage(config.SQLiteConfig{Path: dbPath}, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	defer store.Close()
	left, err := store.Query(context.Background(), &audit.Query{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(left) != 1 || left[0].ID != "r03" {
		t.Errorf("remaining = %v, want only r03", left)
	}
}
