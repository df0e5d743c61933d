// Package config provides configuration management for the gateway.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with comprehensive validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// Passing an empty path loads defaults plus environment variables, which
// is enough to run the gateway when CURSORAPI_UPSTREAM_AUTH_TOKEN is set.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CURSORAPI_SECTION_FIELD.
// For example:
//
//   - CURSORAPI_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - CURSORAPI_UPSTREAM_AUTH_TOKEN overrides upstream.auth_token
//   - CURSORAPI_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Live Reload
//
// A Store holds the configuration for a running process and swaps in fresh
// snapshots on reload. A Watcher observes the configuration file and calls
// back after each debounced change:
//
//	store := config.NewStore(path, cfg)
//	w, _ := config.NewWatcher(path, logger)
//	go w.Watch(ctx, func() error {
//	    _, err := store.Reload()
//	    return err
//	})
//
// A reload that fails to load or validate leaves the previous configuration
// in effect. Only a subset of settings takes effect without a restart:
// logging level, adapter identity policy, session channel capacity and
// frame size limit, and the model listing. Server and upstream settings
// are read once at startup.
//
// # Validation
//
// All configuration is validated automatically during loading. Validation includes:
//
//   - Required field checks (e.g., upstream auth token)
//   - Range validation (e.g., channel capacity must be positive)
//   - Format validation (e.g., valid URL format, valid cron expression)
//   - Enumeration checks (e.g., identity policy, logging level)
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - upstream.auth_token: auth token is required
//	  - adapter.identity_policy: invalid identity policy "both": must be 'collapse' or 'passthrough'
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	server:
//	  listen_address: "127.0.0.1:3000"
//
//	upstream:
//	  auth_token: "WorkosCursorSessionToken..."
//
//	adapter:
//	  identity_policy: "collapse"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//
//	usage:
//	  enabled: true
//	  backend: "sqlite"
//
// # Thread Safety
//
// Store access is thread-safe. It uses a read-write lock to allow
// concurrent reads while protecting against writes during reloads.
package config
