package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/RelientS/cursor-api/pkg/usage"
)

// Driver names accepted by SQLiteConfig.Driver.
const (
	// DriverCgo is the mattn/go-sqlite3 driver. Requires cgo.
	DriverCgo = "sqlite3"

	// DriverPure is the modernc.org/sqlite driver. Pure Go, no cgo.
	DriverPure = "sqlite"
)

// timeLayout is a fixed-width RFC 3339 layout. Zero-padded fractional
// seconds keep UTC timestamps lexicographically ordered, which the
// range filters rely on. Formatting in Go keeps the stored form
// identical across both drivers.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver selects the registered database/sql driver: DriverCgo
	// ("sqlite3") or DriverPure ("sqlite").
	// Default: "sqlite3"
	Driver string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 5
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 2
	MaxIdleConns int

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/usage.db",
		Driver:       DriverCgo,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements the usage.Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend. It opens the
// database with the configured driver, enables WAL mode, and creates
// the schema if missing.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	driver := config.Driver
	if driver == "" {
		driver = DriverCgo
	}
	if driver != DriverCgo && driver != DriverPure {
		return nil, usage.NewStorageError("sqlite", "open",
			fmt.Errorf("unknown sqlite driver %q (want %q or %q)", driver, DriverCgo, DriverPure))
	}

	logger := slog.Default().With("component", "usage.storage.sqlite")

	busyTimeout := config.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	db, err := sql.Open(driver, dsn(driver, config.Path, busyTimeout))
	if err != nil {
		return nil, usage.NewStorageError("sqlite", "open", err)
	}

	maxOpen := config.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 5
	}
	maxIdle := config.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 2
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite usage storage initialized",
		"path", config.Path,
		"driver", driver,
	)

	return s, nil
}

// dsn builds the driver-specific connection string. WAL mode and the
// busy timeout go through the DSN so that every pooled connection gets
// them, not just the one that would run a PRAGMA statement.
func dsn(driver, path string, busyTimeout time.Duration) string {
	ms := busyTimeout.Milliseconds()
	if driver == DriverPure {
		return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", path, ms)
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d", path, ms)
}

// initialize creates the schema and verifies the schema version.
func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return usage.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return usage.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return usage.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return usage.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Store persists a usage record to the database.
func (s *SQLiteStorage) Store(ctx context.Context, record *usage.Record) error {
	query := `
		INSERT INTO usage_records (
			id, timestamp, request_id,
			dialect, model, stream,
			status, duration_ms,
			input_tokens, output_tokens, cache_write_tokens, cache_read_tokens, total_cents,
			error_code, error_message, error_detail
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.Timestamp.UTC().Format(timeLayout), record.RequestID,
		record.Dialect, record.Model, record.Stream,
		record.Status, record.Duration.Milliseconds(),
		record.InputTokens, record.OutputTokens, record.CacheWriteTokens, record.CacheReadTokens, record.TotalCents,
		nullString(record.ErrorCode), nullString(record.ErrorMessage), nullString(record.ErrorDetail),
	)
	if err != nil {
		return usage.NewStorageError("sqlite", "store", err)
	}

	return nil
}

// Query retrieves usage records matching the query filters, newest
// first.
func (s *SQLiteStorage) Query(ctx context.Context, query *usage.Query) ([]*usage.Record, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT * FROM usage_records"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	sqlQuery += " ORDER BY timestamp DESC"

	limit := 100
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)

	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, usage.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*usage.Record{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, usage.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, usage.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// Count returns the number of usage records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *usage.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM usage_records"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, usage.NewStorageError("sqlite", "count", err)
	}

	return count, nil
}

// Delete removes usage records matching the query filters and returns
// the number of records deleted.
func (s *SQLiteStorage) Delete(ctx context.Context, query *usage.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "DELETE FROM usage_records"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, usage.NewStorageError("sqlite", "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, usage.NewStorageError("sqlite", "delete", err)
	}

	return count, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return usage.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return usage.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("sqlite usage storage closed")
	return nil
}

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the clause (without the "WHERE" keyword) and the arguments.
func buildWhereClause(query *usage.Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if query.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, query.StartTime.UTC().Format(timeLayout))
	}
	if query.EndTime != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, query.EndTime.UTC().Format(timeLayout))
	}

	if query.RequestID != "" {
		conditions = append(conditions, "request_id = ?")
		args = append(args, query.RequestID)
	}
	if query.Dialect != "" {
		conditions = append(conditions, "dialect = ?")
		args = append(args, query.Dialect)
	}
	if query.Model != "" {
		conditions = append(conditions, "model = ?")
		args = append(args, query.Model)
	}
	if query.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, query.Status)
	}

	if query.Stream != nil {
		conditions = append(conditions, "stream = ?")
		args = append(args, *query.Stream)
	}

	if query.HasError != nil {
		if *query.HasError {
			conditions = append(conditions, "(error_code IS NOT NULL OR error_message IS NOT NULL)")
		} else {
			conditions = append(conditions, "(error_code IS NULL AND error_message IS NULL)")
		}
	}

	if query.MinTokens != nil {
		conditions = append(conditions, "(input_tokens + output_tokens) >= ?")
		args = append(args, *query.MinTokens)
	}
	if query.MaxTokens != nil {
		conditions = append(conditions, "(input_tokens + output_tokens) <= ?")
		args = append(args, *query.MaxTokens)
	}

	whereClause := ""
	for i, condition := range conditions {
		if i > 0 {
			whereClause += " AND "
		}
		whereClause += condition
	}

	return whereClause, args
}

// scanRow scans a database row into a usage.Record. Column order
// follows the schema.
func scanRow(rows *sql.Rows) (*usage.Record, error) {
	var record usage.Record
	var timestamp string
	var durationMs int64
	var errorCode, errorMessage, errorDetail sql.NullString

	err := rows.Scan(
		&record.ID, &timestamp, &record.RequestID,
		&record.Dialect, &record.Model, &record.Stream,
		&record.Status, &durationMs,
		&record.InputTokens, &record.OutputTokens, &record.CacheWriteTokens, &record.CacheReadTokens, &record.TotalCents,
		&errorCode, &errorMessage, &errorDetail,
	)
	if err != nil {
		return nil, err
	}

	record.Timestamp, err = time.Parse(timeLayout, timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", timestamp, err)
	}
	record.Duration = time.Duration(durationMs) * time.Millisecond
	record.ErrorCode = errorCode.String
	record.ErrorMessage = errorMessage.String
	record.ErrorDetail = errorDetail.String

	return &record, nil
}

// nullString converts an empty string to NULL for optional columns.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
