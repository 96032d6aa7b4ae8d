package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // "sqlite3" driver (cgo)
	_ "modernc.org/sqlite"          // "sqlite" driver (pure Go)

	"newnan/cbfirewall/pkg/audit"
	"newnan/cbfirewall/pkg/config"
)

// Driver names accepted in config.SQLiteConfig.Driver.
const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStorage implements audit.Storage using SQLite through either the
// mattn/go-sqlite3 or the modernc.org/sqlite driver.
type SQLiteStorage struct {
	db     *sql.DB
	config config.SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database and initializes the schema.
func NewSQLiteStorage(cfg config.SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if cfg.Path == "" {
		return nil, audit.NewStorageError("sqlite", "open", errors.New("database path is required"))
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.Driver != DriverMattn && cfg.Driver != DriverModernc {
		return nil, audit.NewStorageError("sqlite", "open", fmt.Errorf("unknown driver %q", cfg.Driver))
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = config.DefaultAuditSQLiteBusyTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "audit.storage.sqlite")

	db, err := sql.Open(cfg.Driver, buildDSN(cfg))
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	// Each connection to ":memory:" is a separate database
	if cfg.Path == MemoryPath {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"max_open_conns", cfg.MaxOpenConns,
	)

	return s, nil
}

// buildDSN adds busy timeout and WAL journal parameters in the syntax of the
// selected driver.
func buildDSN(cfg config.SQLiteConfig) string {
	timeout := cfg.BusyTimeout.Milliseconds()
	wal := cfg.Path != MemoryPath

	switch cfg.Driver {
	case DriverMattn:
		dsn := fmt.Sprintf("%s?_busy_timeout=%d", cfg.Path, timeout)
		if wal {
			dsn += "&_journal_mode=WAL"
		}
		return dsn
	default:
		dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)", cfg.Path, timeout)
		if wal {
			dsn += "&_pragma=journal_mode(WAL)"
		}
		return dsn
	}
}

// initialize creates the schema and verifies its version.
func (s *SQLiteStorage) initialize() error {
	if err := s.db.Ping(); err != nil {
		return audit.NewStorageError("sqlite", "ping", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}
	s.logger.Debug("database schema created")

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion, time.Now().UnixNano()); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store persists a record.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.Record) error {
	var x, y, z sql.NullFloat64
	if p := record.Position; p != nil {
		x = sql.NullFloat64{Float64: p.X, Valid: true}
		y = sql.NullFloat64{Float64: p.Y, Valid: true}
		z = sql.NullFloat64{Float64: p.Z, Valid: true}
	}

	allowed := 0
	if record.Allowed {
		allowed = 1
	}

	_, err := s.db.ExecContext(ctx, insertRecord,
		record.ID, record.Timestamp.UnixNano(),
		record.Source, record.World, x, y, z,
		record.Command, allowed, record.Reason, record.Rule, record.Validator,
		int64(record.Duration),
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Get returns the record with the given ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*audit.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM decisions WHERE id = ?", id)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "get", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, audit.NewStorageError("sqlite", "get", err)
		}
		return nil, audit.ErrNotFound
	}
	record, err := scanRecord(rows)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "scan", err)
	}
	return record, nil
}

// Query retrieves records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT " + recordColumns + " FROM decisions"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	order := "DESC"
	if query.Ascending() {
		order = "ASC"
	}
	sqlQuery += fmt.Sprintf(" ORDER BY checked_at %s, id %s", order, order)
	sqlQuery += fmt.Sprintf(" LIMIT %d", query.EffectiveLimit())
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*audit.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM decisions"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *SQLiteStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "DELETE FROM decisions"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Ping verifies the database connection. It backs the readiness check.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return audit.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the WHERE clause (without "WHERE" keyword) and the query arguments.
func buildWhereClause(query *audit.Query) (string, []any) {
	var conditions []string
	var args []any

	// Time range filter
	if query.StartTime != nil {
		conditions = append(conditions, "checked_at >= ?")
		args = append(args, query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "checked_at <= ?")
		args = append(args, query.EndTime.UnixNano())
	}

	// Origin filters
	if query.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, query.Source)
	}
	if query.World != "" {
		conditions = append(conditions, "world = ?")
		args = append(args, query.World)
	}

	// Decision filters
	if query.Allowed != nil {
		conditions = append(conditions, "allowed = ?")
		if *query.Allowed {
			args = append(args, 1)
		} else {
			args = append(args, 0)
		}
	}
	if query.Command != "" {
		conditions = append(conditions, `LOWER(command) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(query.Command))+"%")
	}
	if len(query.IDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(query.IDs)), ", ")
		conditions = append(conditions, "id IN ("+placeholders+")")
		for _, id := range query.IDs {
			args = append(args, id)
		}
	}

	return strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// scanRecord scans a database row into a Record.
func scanRecord(rows *sql.Rows) (*audit.Record, error) {
	var record audit.Record
	var checkedAt, duration, allowed int64
	var world, rule, validator sql.NullString
	var x, y, z sql.NullFloat64

	err := rows.Scan(
		&record.ID, &checkedAt,
		&record.Source, &world, &x, &y, &z,
		&record.Command, &allowed, &record.Reason, &rule, &validator,
		&duration,
	)
	if err != nil {
		return nil, err
	}

	record.Timestamp = time.Unix(0, checkedAt).UTC()
	record.Duration = time.Duration(duration)
	record.Allowed = allowed != 0
	record.World = world.String
	record.Rule = rule.String
	record.Validator = validator.String
	if x.Valid && y.Valid && z.Valid {
		record.Position = &audit.Position{X: x.Float64, Y: y.Float64, Z: z.Float64}
	}

	return &record, nil
}
