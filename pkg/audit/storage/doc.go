// Package storage provides audit.Storage backends.
//
// MemoryStorage keeps records in a map and is meant for tests and short-lived
// servers. SQLiteStorage persists records in a single table and can run on
// either the cgo driver (mattn/go-sqlite3, driver name "sqlite3") or the pure
// Go driver (modernc.org/sqlite, driver name "sqlite"). File databases are
// opened in WAL mode with a busy timeout.
//
// Use New to pick a backend from configuration:
//
//	store, err := storage.New(cfg.Audit, logger)
package storage
