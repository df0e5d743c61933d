// Package metrics provides Prometheus metrics collection for the gateway.
//
// # Overview
//
// The metrics package implements Prometheus metrics for monitoring
// completion request processing and the upstream streaming pipeline. A
// single Collector owns the registry and exposes recording methods for
// every component; all methods become no-ops when metrics are disabled.
//
// # Metric Families
//
//   - cursorapi_requests_total: request count by dialect, model, status
//   - cursorapi_request_duration_seconds: request duration histogram
//   - cursorapi_tokens_total: token counts by model and type
//     (input, output, cache_write, cache_read)
//   - cursorapi_response_size_bytes: response body size by dialect
//   - cursorapi_sessions_active: currently open upstream sessions
//   - cursorapi_upstream_frames_total: decoded and skipped frames
//   - cursorapi_upstream_errors_total: upstream errors by protocol code
//
// # Usage
//
//	// Create collector
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	// Record request metrics
//	collector.RecordRequest("openai", "gpt-4o", "200", 1200*time.Millisecond)
//	collector.RecordTokens("gpt-4o", 1200, 350, 0, 800)
//
//	// Record stream metrics
//	collector.SessionStarted()
//	defer collector.SessionEnded()
//	collector.RecordFrames(42, 3)
//
//	// Expose the endpoint
//	mux.Handle("/metrics", collector.Handler())
//
// # Histogram Buckets
//
// Request duration buckets cover the latency range of LLM completions:
//
//	0.1s, 0.25s, 0.5s, 1s, 2s, 5s, 10s, 30s
//
// Response size buckets are exponential from 256 bytes to 4MB.
//
// # Cardinality Management
//
// The model label is taken from the request body and is therefore
// client-controlled. The collector admits at most 256 distinct model
// values; anything beyond that is aggregated into "other", and an empty
// model is recorded as "unknown".
package metrics
