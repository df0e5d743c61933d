// Package storage provides storage backends for usage records.
//
// # Storage Backends
//
// The package provides two implementations of the usage.Storage
// interface:
//
//   - SQLite: durable embedded database, the default backend
//   - Memory: in-memory map for tests and ephemeral deployments
//
// # SQLite Drivers
//
// The SQLite backend works with two registered database/sql drivers,
// selected by SQLiteConfig.Driver:
//
//   - "sqlite3" (DriverCgo): github.com/mattn/go-sqlite3, requires cgo
//   - "sqlite" (DriverPure): modernc.org/sqlite, pure Go
//
// Both use the same schema and the same stored representation
// (timestamps are formatted in Go, not by the driver), so a database
// file written with one driver can be read with the other.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:        "data/usage.db",
//	    Driver:      storage.DriverCgo,
//	    BusyTimeout: 5 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.Store(ctx, record)
//
//	records, err := store.Query(ctx, &usage.Query{
//	    StartTime: &since,
//	    Model:     "claude-3.5-sonnet",
//	    Limit:     100,
//	})
//
// # Thread Safety
//
// Both backends are safe for concurrent use. The SQLite backend runs
// in WAL mode so readers do not block the writer.
//
// # Schema Migration
//
// The SQLite backend initializes its schema on first use and tracks
// the schema version in the schema_version table.
package storage
