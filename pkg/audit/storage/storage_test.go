package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"newnan/cbfirewall/pkg/audit"
	"newnan/cbfirewall/pkg/config"
)

type backend struct {
	name string
	open func(t *testing.T) audit.Storage
}

func backends() []backend {
	return []backend{
		{name: "memory", open: func(t *testing.T) audit.Storage { return NewMemoryStorage() }},
		{name: "sqlite/modernc", open: func(t *testing.T) audit.Storage { return openSQLite(t, DriverModernc) }},
		{name: "sqlite/mattn", open: func(t *testing.T) audit.Storage { return openSQLite(t, DriverMattn) }},
	}
}

func openSQLite(t *testing.T, driver string) audit.Storage {
	t.Helper()

	s, err := NewSQLiteStorage(config.SQLiteConfig{
		Path:         filepath.Join(t.TempDir(), "audit.db"),
		Driver:       driver,
		MaxOpenConns: 2,
		BusyTimeout:  time.Second,
	}, nil)
	if err != nil {
		if strings.Contains(err.Error(), "CGO_ENABLED") {
			t.Skipf("driver %s unavailable: %v", driver, err)
		}
		t.Fatalf("NewSQLiteStorage() failed: %v", err)
	}
	return s
}

// forEachBackend runs fn against a fresh store of every backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, s audit.Storage)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			fn(t, s)
		})
	}
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleRecords() []*audit.Record {
	return []*audit.Record{
		{
			ID:        "r1",
			Timestamp: base,
			Source:    "command_block",
			World:     "overworld",
			Position:  &audit.Position{X: 10, Y: 64, Z: -3.5},
			Command:   "say hello",
			Allowed:   true,
			Reason:    "literal match",
			Rule:      "say",
			Duration:  12 * time.Microsecond,
		},
		{
			ID:        "r2",
			Timestamp: base.Add(time.Minute),
			Source:    "command_block",
			World:     "nether",
			Command:   "give @p diamond 999",
			Allowed:   false,
			Reason:    "validator rejected",
			Rule:      "give",
			Validator: "ItemValidator",
			Duration:  30 * time.Microsecond,
		},
		{
			ID:        "r3",
			Timestamp: base.Add(2 * time.Minute),
			Source:    "api",
			Command:   "OP Steve",
			Allowed:   false,
			Reason:    "no matching rule",
			Duration:  time.Microsecond,
		},
		{
			ID:        "r4",
			Timestamp: base.Add(3 * time.Minute),
			Source:    "command_block",
			World:     "overworld",
			Command:   "tp @s ~ ~1 ~",
			Allowed:   true,
			Reason:    "validator accepted",
			Rule:      "tp",
			Validator: "CompositeValidator",
			Duration:  8 * time.Microsecond,
		},
	}
}

func seed(t *testing.T, s audit.Storage) {
	t.Helper()
	for _, r := range sampleRecords() {
		if err := s.Store(context.Background(), r); err != nil {
			t.Fatalf("Store(%s) failed: %v", r.ID, err)
		}
	}
}

func ids(records []*audit.Record) string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return strings.Join(out, ",")
}

func TestStorage_StoreAndGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s audit.Storage) {
		seed(t, s)
		ctx := context.Background()

		got, err := s.Get(ctx, "r1")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		want := sampleRecords()[0]
		if got.Command != want.Command || got.Source != want.Source || got.World != want.World {
			t.Errorf("Get() = %+v, want %+v", got, want)
		}
		if !got.Timestamp.Equal(want.Timestamp) {
			t.Errorf("Timestamp = %v, want %v", got.Timestamp, want.Timestamp)
		}
		if got.Duration != want.Duration {
			t.Errorf("Duration = %v, want %v", got.Duration, want.Duration)
		}
		if !got.Allowed || got.Reason != want.Reason || got.Rule != "say" {
			t.Errorf("decision fields = %v/%q/%q", got.Allowed, got.Reason, got.Rule)
		}
		if got.Position == nil || *got.Position != *want.Position {
			t.Errorf("Position = %v, want %v", got.Position, want.Position)
		}

		got, err = s.Get(ctx, "r3")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if got.Position != nil {
			t.Errorf("Position = %v, want nil", got.Position)
		}
		if got.World != "" || got.Validator != "" {
			t.Errorf("empty fields = %q/%q", got.World, got.Validator)
		}

		if _, err := s.Get(ctx, "missing"); !errors.Is(err, audit.ErrNotFound) {
			t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
		}
	})
}

func TestStorage_Query(t *testing.T) {
	allowed, blocked := true, false
	start := base.Add(time.Minute)
	end := base.Add(2 * time.Minute)

	tests := []struct {
		name  string
		query audit.Query
		want  string
	}{
		{name: "all newest first", query: audit.Query{}, want: "r4,r3,r2,r1"},
		{name: "ascending", query: audit.Query{SortOrder: audit.SortAsc}, want: "r1,r2,r3,r4"},
		{name: "blocked", query: audit.Query{Allowed: &blocked}, want: "r3,r2"},
		{name: "allowed", query: audit.Query{Allowed: &allowed}, want: "r4,r1"},
		{name: "source", query: audit.Query{Source: "api"}, want: "r3"},
		{name: "world", query: audit.Query{World: "overworld"}, want: "r4,r1"},
		{name: "time range", query: audit.Query{StartTime: &start, EndTime: &end}, want: "r3,r2"},
		{name: "command substring ignores case", query: audit.Query{Command: "op ste"}, want: "r3"},
		{name: "command wildcard is literal", query: audit.Query{Command: "%"}, want: ""},
		{name: "ids", query: audit.Query{IDs: []string{"r1", "r4", "nope"}}, want: "r4,r1"},
		{name: "limit", query: audit.Query{Limit: 2}, want: "r4,r3"},
		{name: "offset", query: audit.Query{Limit: 2, Offset: 1}, want: "r3,r2"},
		{name: "offset past end", query: audit.Query{Offset: 10}, want: ""},
		{name: "combined", query: audit.Query{Source: "command_block", Allowed: &blocked}, want: "r2"},
	}

	forEachBackend(t, func(t *testing.T, s audit.Storage) {
		seed(t, s)
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				q := tt.query
				got, err := s.Query(context.Background(), &q)
				if err != nil {
					t.Fatalf("Query() failed: %v", err)
				}
				if ids(got) != tt.want {
					t.Errorf("Query() = [%s], want [%s]", ids(got), tt.want)
				}
			})
		}
	})
}

func TestStorage_QueryInvalid(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s audit.Storage) {
		_, err := s.Query(context.Background(), &audit.Query{Limit: -1})
		var qe *audit.QueryError
		if !errors.As(err, &qe) {
			t.Errorf("Query() error = %v, want *QueryError", err)
		}
	})
}

func TestStorage_CountAndDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s audit.Storage) {
		seed(t, s)
		ctx := context.Background()

		count, err := s.Count(ctx, audit.Blocked())
		if err != nil {
			t.Fatalf("Count() failed: %v", err)
		}
		if count != 2 {
			t.Errorf("Count(blocked) = %d, want 2", count)
		}

		// Pagination does not limit Count or Delete
		count, err = s.Count(ctx, &audit.Query{Limit: 1})
		if err != nil {
			t.Fatalf("Count() failed: %v", err)
		}
		if count != 4 {
			t.Errorf("Count(all) = %d, want 4", count)
		}

		deleted, err := s.Delete(ctx, audit.OlderThan(90*time.Second, base.Add(3*time.Minute)))
		if err != nil {
			t.Fatalf("Delete() failed: %v", err)
		}
		if deleted != 2 {
			t.Errorf("Delete(older) = %d, want 2", deleted)
		}

		deleted, err = s.Delete(ctx, &audit.Query{IDs: []string{"r4"}})
		if err != nil {
			t.Fatalf("Delete() failed: %v", err)
		}
		if deleted != 1 {
			t.Errorf("Delete(ids) = %d, want 1", deleted)
		}

		remaining, err := s.Query(ctx, &audit.Query{})
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if ids(remaining) != "r3" {
			t.Errorf("remaining = [%s], want [r3]", ids(remaining))
		}
	})
}

func TestStorage_ManyRecords(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s audit.Storage) {
		ctx := context.Background()
		for i := 0; i < 50; i++ {
			r := &audit.Record{
				ID:        fmt.Sprintf("rec-%03d", i),
				Timestamp: base.Add(time.Duration(i) * time.Second),
				Source:    "command_block",
				Command:   "say hi",
				Reason:    "literal match",
				Allowed:   i%2 == 0,
			}
			if err := s.Store(ctx, r); err != nil {
				t.Fatalf("Store() failed: %v", err)
			}
		}

		oldest, err := s.Query(ctx, &audit.Query{SortOrder: audit.SortAsc, Limit: 5})
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if ids(oldest) != "rec-000,rec-001,rec-002,rec-003,rec-004" {
			t.Errorf("oldest = [%s]", ids(oldest))
		}

		count, err := s.Count(ctx, &audit.Query{})
		if err != nil {
			t.Fatalf("Count() failed: %v", err)
		}
		if count != 50 {
			t.Errorf("Count() = %d, want 50", count)
		}
	})
}

func TestMemoryStorage_Isolation(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	r := sampleRecords()[0]
	if err := s.Store(ctx, r); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	r.Position.X = 999

	got, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Position.X != 10 {
		t.Errorf("stored record changed through caller pointer: X = %v", got.Position.X)
	}
}

func TestMemoryStorage_Closed(t *testing.T) {
	s := NewMemoryStorage()
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	err := s.Store(context.Background(), sampleRecords()[0])
	if !errors.Is(err, errStorageClosed) {
		t.Errorf("Store() after Close error = %v, want errStorageClosed", err)
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping() after Close should fail")
	}
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	cfg := config.SQLiteConfig{Path: path, Driver: DriverModernc}

	s, err := NewSQLiteStorage(cfg, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() failed: %v", err)
	}
	seed(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	s, err = NewSQLiteStorage(cfg, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	count, err := s.Count(context.Background(), &audit.Query{})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 4 {
		t.Errorf("Count() after reopen = %d, want 4", count)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
}

func TestSQLiteStorage_InMemory(t *testing.T) {
	s, err := NewSQLiteStorage(config.SQLiteConfig{Path: MemoryPath, MaxOpenConns: 8}, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() failed: %v", err)
	}
	defer s.Close()

	seed(t, s)
	count, err := s.Count(context.Background(), &audit.Query{})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 4 {
		t.Errorf("Count() = %d, want 4", count)
	}
}

func TestSQLiteStorage_DuplicateID(t *testing.T) {
	s := openSQLite(t, DriverModernc)
	defer s.Close()

	r := sampleRecords()[0]
	if err := s.Store(context.Background(), r); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	err := s.Store(context.Background(), r)
	var se *audit.StorageError
	if !errors.As(err, &se) || se.Op != "store" {
		t.Errorf("Store(duplicate) error = %v, want store StorageError", err)
	}
}

func TestNewSQLiteStorage_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SQLiteConfig
	}{
		{name: "missing path", cfg: config.SQLiteConfig{}},
		{name: "unknown driver", cfg: config.SQLiteConfig{Path: MemoryPath, Driver: "postgres"}},
		{name: "unwritable dir", cfg: config.SQLiteConfig{Path: filepath.Join("/nonexistent", "dir", "a.db")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSQLiteStorage(tt.cfg, nil); err == nil {
				t.Error("NewSQLiteStorage() should fail")
			}
		})
	}
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		cfg  config.SQLiteConfig
		want string
	}{
		{
			cfg:  config.SQLiteConfig{Path: "a.db", Driver: DriverMattn, BusyTimeout: 5 * time.Second},
			want: "a.db?_busy_timeout=5000&_journal_mode=WAL",
		},
		{
			cfg:  config.SQLiteConfig{Path: "a.db", Driver: DriverModernc, BusyTimeout: time.Second},
			want: "a.db?_pragma=busy_timeout(1000)&_pragma=journal_mode(WAL)",
		},
		{
			cfg:  config.SQLiteConfig{Path: MemoryPath, Driver: DriverModernc, BusyTimeout: time.Second},
			want: ":memory:?_pragma=busy_timeout(1000)",
		},
	}
	for _, tt := range tests {
		if got := buildDSN(tt.cfg); got != tt.want {
			t.Errorf("buildDSN(%+v) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	s, err := New(config.AuditConfig{Backend: BackendMemory}, nil)
	if err != nil {
		t.Fatalf("New(memory) failed: %v", err)
	}
	if _, ok := s.(*MemoryStorage); !ok {
		t.Errorf("New(memory) = %T", s)
	}

	s, err = New(config.AuditConfig{
		Backend: BackendSQLite,
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "a.db")},
	}, nil)
	if err != nil {
		t.Fatalf("New(sqlite) failed: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStorage); !ok {
		t.Errorf("New(sqlite) = %T", s)
	}

	if _, err := New(config.AuditConfig{Backend: "redis"}, nil); err == nil {
		t.Error("New(redis) should fail")
	}
}
