// Package telemetry provides observability for the gateway.
//
// # Overview
//
// The telemetry package groups structured logging, Prometheus metrics,
// and the health endpoint. Each concern lives in its own subpackage and
// is wired together by the server.
//
// # Components
//
//   - logging: slog-based structured logging with credential masking
//     and request context injection
//   - metrics: Prometheus metrics for requests, tokens, and the upstream
//     stream pipeline
//   - health: the /health report with component checks and request counters
//
// # Usage
//
//	// Logging
//	logger, levelVar, err := logging.New(logging.Config{
//	    Level:  cfg.Telemetry.Logging.Level,
//	    Format: cfg.Telemetry.Logging.Format,
//	})
//
//	// Metrics
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordRequest("openai", "gpt-4o", "200", time.Second)
//
//	// Health
//	checker := health.New("cursor-api", version, 5*time.Second)
//	mux.HandleFunc("/health", checker.Handler())
//
// The levelVar returned by logging.New feeds configuration reloads: a
// reload calls levelVar.Set with the new level and every handler picks
// it up without restart.
package telemetry
