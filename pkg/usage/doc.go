// Package usage provides request accounting for the gateway. Every
// completed completion request is captured as a Record: model, dialect,
// streaming flag, timing, token consumption, and how it ended.
//
// # Architecture
//
// The usage system consists of three layers:
//
//  1. Recorder - accepts records from request handlers without blocking
//  2. Storage Backend - persists records (SQLite or in-memory)
//  3. Retention - prunes old records on a cron schedule
//
// # Recording Flow
//
// Records are written asynchronously so a slow disk never stalls a
// response stream:
//
//	Request handler → Recorder.Record (buffered channel)
//	     ↓
//	worker goroutine
//	     ↓
//	Storage.Store (SQLite, WAL mode)
//
// When the buffer is full new records are dropped and counted rather
// than blocking the handler.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:   "data/usage.db",
//	    Driver: "sqlite3",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	rec := recorder.NewRecorder(store, recorder.DefaultConfig())
//	defer rec.Close()
//
//	// At the end of a request (non-blocking):
//	rec.Record(&usage.Record{
//	    RequestID:    requestID,
//	    Dialect:      "openai",
//	    Model:        "claude-3.5-sonnet",
//	    Stream:       true,
//	    Status:       usage.StatusSuccess,
//	    Duration:     elapsed,
//	    InputTokens:  1200,
//	    OutputTokens: 350,
//	})
//
// # Querying
//
//	records, err := store.Query(ctx, &usage.Query{
//	    StartTime: &since,
//	    Model:     "claude-3.5-sonnet",
//	    Status:    usage.StatusFailure,
//	    Limit:     100,
//	})
//
// # Retention
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    RetentionDays: 90,
//	    PruneSchedule: "0 3 * * *",
//	})
//	scheduler := retention.NewScheduler(pruner)
//	scheduler.Start(ctx)
//	defer scheduler.Stop()
//
// # Storage Backends
//
// Two backends satisfy the Storage interface: SQLite (the default, via
// either the cgo "sqlite3" driver or the pure-Go "sqlite" driver) and
// an in-memory store for tests and ephemeral deployments.
package usage
