// Package health provides the health endpoint for the gateway.
//
// # Overview
//
// The health package assembles the report served on /health: service and
// build information, runtime statistics with request counters, and the
// results of registered component checks.
//
// # Usage
//
//	// Create health checker
//	checker := health.New("cursor-api", version, 5*time.Second)
//
//	// Register component checks
//	checker.RegisterCheck("usage_store", func(ctx context.Context) error {
//	    return store.Ping(ctx)
//	})
//
//	// Mount the endpoint
//	mux.HandleFunc("/health", checker.Handler())
//
// # Request Counters
//
// The checker owns a Stats value that HTTP middleware updates as requests
// start and finish:
//
//	stats := checker.Stats()
//	stats.RequestStarted()
//	defer stats.RequestFinished(failed)
//
// The counters appear in the report under runtime.requests.
//
// # Status Semantics
//
// The endpoint returns 200 with status "ok" while every registered check
// passes, and 503 with status "degraded" as soon as any check fails or
// times out. With no checks registered the endpoint always reports "ok".
//
// # Example Response
//
//	{
//	    "status": "ok",
//	    "service": {"name": "cursor-api", "version": "1.2.0", "go_version": "go1.25.0"},
//	    "runtime": {
//	        "started_at": "2026-08-25T10:00:00Z",
//	        "uptime_seconds": 3600,
//	        "goroutines": 24,
//	        "memory_bytes": 14680064,
//	        "requests": {"total": 1523, "active": 2, "errors": 7}
//	    },
//	    "checks": {
//	        "usage_store": {"status": "ok", "duration_ms": 0.4}
//	    },
//	    "timestamp": "2026-08-25T11:00:00Z"
//	}
package health
