package health

import (
	"encoding/json"
	"net/http"
)

// Handler returns the HTTP handler for the health endpoint.
//
// It runs all registered component checks and reports the service status,
// runtime statistics, and per-component results.
//
// Returns:
//   - 200 OK: all components healthy (or no checks registered)
//   - 503 Service Unavailable: at least one component unhealthy
//
// Example response:
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
//	    "models": ["claude-3.5-sonnet", "gpt-4o"],
//	    "checks": {
//	        "usage_store": {"status": "ok", "duration_ms": 0.4}
//	    },
//	    "timestamp": "2026-08-25T11:00:00Z"
//	}
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Only accept GET requests
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status := c.Status(r.Context())

		w.Header().Set("Content-Type", "application/json")

		if status.Status == "degraded" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(status)
		}
	}
}
