// Package logging provides structured logging for the gateway.
//
// # Overview
//
// The logging package builds on Go's standard log/slog package to provide:
//   - Structured logging with JSON and text formats
//   - Credential masking (the upstream session token never reaches logs)
//   - Context-aware logging with request IDs, dialect, and model
//   - A runtime-adjustable level for configuration hot reload
//
// # Usage
//
// Create a logger at startup:
//
//	logger, levelVar, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    // invalid level or format
//	}
//
// Attach request-scoped fields through the context; any handler that
// logs with a context-aware call picks them up automatically:
//
//	ctx = logging.WithRequestID(ctx, requestID)
//	ctx = logging.WithDialect(ctx, "openai")
//	ctx = logging.WithModel(ctx, req.Model)
//	logger.InfoContext(ctx, "stream started")
//
// # Level Reload
//
// The returned *slog.LevelVar feeds the handler's level check. When the
// configuration file changes, the reload path parses the new level and
// sets it in place:
//
//	if level, err := logging.ParseLevel(cfg.Telemetry.Logging.Level); err == nil {
//	    levelVar.Set(level)
//	}
//
// # Credential Masking
//
// Attributes whose keys look credential-like (token, secret, password,
// api_key, authorization) have their values masked down to a short
// prefix before any bytes are written. Masking applies to attributes
// added at the call site, through With, and through context fields
// alike.
package logging
