package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	// Validate server configuration
	errs = append(errs, validateServer(&cfg.Server)...)

	// Validate upstream configuration
	errs = append(errs, validateUpstream(&cfg.Upstream)...)

	// Validate adapter configuration
	errs = append(errs, validateAdapter(&cfg.Adapter)...)

	// Validate session configuration
	errs = append(errs, validateSession(&cfg.Session)...)

	// Validate telemetry configuration
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	// Validate usage configuration
	errs = append(errs, validateUsage(&cfg.Usage)...)

	// Validate model listing
	errs = append(errs, validateModels(cfg.Models)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	// Validate listen address is not empty
	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	// Validate timeouts are non-negative
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must not be negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must not be negative",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must not be negative",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must not be negative",
		})
	}

	// Validate max header bytes is reasonable
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}

	// Validate TLS file paths when TLS is on
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{
				Field:   "server.tls.cert_file",
				Message: "certificate file is required when TLS is enabled",
			})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{
				Field:   "server.tls.key_file",
				Message: "key file is required when TLS is enabled",
			})
		}
	}

	return errs
}

// validateUpstream validates upstream configuration.
func validateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError

	// Validate base URL
	if cfg.BaseURL == "" {
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: "base URL is required",
		})
	} else if parsed, err := url.Parse(cfg.BaseURL); err != nil {
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: fmt.Sprintf("invalid URL format: %v", err),
		})
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: fmt.Sprintf("invalid URL scheme %q: must be 'http' or 'https'", parsed.Scheme),
		})
	}

	// Validate auth token is present
	if cfg.AuthToken == "" {
		errs = append(errs, FieldError{
			Field:   "upstream.auth_token",
			Message: "auth token is required",
		})
	}

	// Validate timeout
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.timeout",
			Message: "timeout must not be negative",
		})
	}

	// Validate max retries
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.max_retries",
			Message: "max retries must be non-negative",
		})
	}
	if cfg.MaxRetries > 10 {
		errs = append(errs, FieldError{
			Field:   "upstream.max_retries",
			Message: "max retries exceeds reasonable limit (10)",
		})
	}

	return errs
}

// validateAdapter validates adapter configuration.
func validateAdapter(cfg *AdapterConfig) []FieldError {
	var errs []FieldError

	validPolicies := map[string]bool{"collapse": true, "passthrough": true}
	if cfg.IdentityPolicy == "" {
		errs = append(errs, FieldError{
			Field:   "adapter.identity_policy",
			Message: "identity policy is required",
		})
	} else if !validPolicies[cfg.IdentityPolicy] {
		errs = append(errs, FieldError{
			Field:   "adapter.identity_policy",
			Message: fmt.Sprintf("invalid identity policy %q: must be 'collapse' or 'passthrough'", cfg.IdentityPolicy),
		})
	}

	return errs
}

// validateSession validates session configuration.
func validateSession(cfg *SessionConfig) []FieldError {
	var errs []FieldError

	if cfg.ChannelCapacity <= 0 {
		errs = append(errs, FieldError{
			Field:   "session.channel_capacity",
			Message: "channel capacity must be positive",
		})
	}
	if cfg.MaxFrameSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "session.max_frame_size",
			Message: "max frame size must be positive",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	// Validate metrics path
	if cfg.Metrics.IsEnabled() {
		if cfg.Metrics.Path == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path is required when metrics are enabled",
			})
		} else if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with '/'",
			})
		}
	}

	return errs
}

// validateUsage validates usage configuration.
func validateUsage(cfg *UsageConfig) []FieldError {
	var errs []FieldError

	if !cfg.IsEnabled() {
		return errs
	}

	// Validate backend
	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if cfg.Backend == "" {
		errs = append(errs, FieldError{
			Field:   "usage.backend",
			Message: "backend is required when usage recording is enabled",
		})
	} else if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "usage.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'sqlite' or 'memory'", cfg.Backend),
		})
	}

	// Validate sqlite settings when the sqlite backend is selected
	if cfg.Backend == "sqlite" {
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "usage.sqlite.path",
				Message: "database path is required for the sqlite backend",
			})
		}
		validDrivers := map[string]bool{"sqlite3": true, "sqlite": true}
		if cfg.SQLite.Driver != "" && !validDrivers[cfg.SQLite.Driver] {
			errs = append(errs, FieldError{
				Field:   "usage.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite3' or 'sqlite'", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "usage.sqlite.busy_timeout",
				Message: "busy timeout must not be negative",
			})
		}
	}

	// Validate recorder settings
	if cfg.Recorder.Buffer <= 0 {
		errs = append(errs, FieldError{
			Field:   "usage.recorder.buffer",
			Message: "recorder buffer must be positive",
		})
	}
	if cfg.Recorder.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "usage.recorder.write_timeout",
			Message: "write timeout must not be negative",
		})
	}

	// Validate retention settings
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "usage.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.Days > 0 {
		if cfg.Retention.Schedule == "" {
			errs = append(errs, FieldError{
				Field:   "usage.retention.schedule",
				Message: "schedule is required when retention is enabled",
			})
		} else if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "usage.retention.schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

// validateModels validates the model listing.
func validateModels(models []ModelConfig) []FieldError {
	var errs []FieldError

	seen := make(map[string]bool, len(models))
	for i, m := range models {
		if m.ID == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("models[%d].id", i),
				Message: "model id is required",
			})
			continue
		}
		if seen[m.ID] {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("models[%d].id", i),
				Message: fmt.Sprintf("duplicate model id %q", m.ID),
			})
		}
		seen[m.ID] = true
	}

	return errs
}
