package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"newnan/cbfirewall/pkg/audit"
	"newnan/cbfirewall/pkg/config"
)

// Backend names accepted in config.AuditConfig.Backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

var errStorageClosed = errors.New("storage closed")

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New creates the storage backend named by cfg.Backend.
func New(cfg config.AuditConfig, logger *slog.Logger) (audit.Storage, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryStorage(), nil
	case BackendSQLite:
		return NewSQLiteStorage(cfg.SQLite, logger)
	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.Backend)
	}
}
