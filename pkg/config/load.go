package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. An empty path yields a pure-defaults configuration, which still
// fails validation unless an upstream auth token is supplied some other
// way; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CURSORAPI_SECTION_FIELD (e.g., CURSORAPI_UPSTREAM_AUTH_TOKEN).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file (skipped when path is empty)
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseFile reads and parses the YAML file at path. An empty path returns
// a zero configuration so the caller can run on defaults and environment
// variables alone.
func parseFile(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format CURSORAPI_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("CURSORAPI_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("CURSORAPI_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("CURSORAPI_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("CURSORAPI_SERVER_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.IdleTimeout = d
		}
	}
	if val := os.Getenv("CURSORAPI_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}
	if val := os.Getenv("CURSORAPI_SERVER_TLS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Server.TLS.Enabled = b
		}
	}
	if val := os.Getenv("CURSORAPI_SERVER_TLS_CERT_FILE"); val != "" {
		cfg.Server.TLS.CertFile = val
	}
	if val := os.Getenv("CURSORAPI_SERVER_TLS_KEY_FILE"); val != "" {
		cfg.Server.TLS.KeyFile = val
	}

	// Upstream overrides
	if val := os.Getenv("CURSORAPI_UPSTREAM_BASE_URL"); val != "" {
		cfg.Upstream.BaseURL = val
	}
	if val := os.Getenv("CURSORAPI_UPSTREAM_AUTH_TOKEN"); val != "" {
		cfg.Upstream.AuthToken = val
	}
	if val := os.Getenv("CURSORAPI_UPSTREAM_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Upstream.Timeout = d
		}
	}
	if val := os.Getenv("CURSORAPI_UPSTREAM_MAX_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Upstream.MaxRetries = i
		}
	}
	if val := os.Getenv("CURSORAPI_UPSTREAM_CLIENT_VERSION"); val != "" {
		cfg.Upstream.ClientVersion = val
	}
	if val := os.Getenv("CURSORAPI_UPSTREAM_TIMEZONE"); val != "" {
		cfg.Upstream.Timezone = val
	}

	// Adapter overrides
	if val := os.Getenv("CURSORAPI_ADAPTER_IDENTITY_POLICY"); val != "" {
		cfg.Adapter.IdentityPolicy = val
	}

	// Session overrides
	if val := os.Getenv("CURSORAPI_SESSION_CHANNEL_CAPACITY"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Session.ChannelCapacity = i
		}
	}
	if val := os.Getenv("CURSORAPI_SESSION_MAX_FRAME_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Session.MaxFrameSize = i
		}
	}

	// Telemetry overrides
	if val := os.Getenv("CURSORAPI_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("CURSORAPI_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("CURSORAPI_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = boolPtr(b)
		}
	}
	if val := os.Getenv("CURSORAPI_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}

	// Usage overrides
	if val := os.Getenv("CURSORAPI_USAGE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Usage.Enabled = boolPtr(b)
		}
	}
	if val := os.Getenv("CURSORAPI_USAGE_BACKEND"); val != "" {
		cfg.Usage.Backend = val
	}
	if val := os.Getenv("CURSORAPI_USAGE_SQLITE_PATH"); val != "" {
		cfg.Usage.SQLite.Path = val
	}
	if val := os.Getenv("CURSORAPI_USAGE_SQLITE_DRIVER"); val != "" {
		cfg.Usage.SQLite.Driver = val
	}
	if val := os.Getenv("CURSORAPI_USAGE_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Usage.Retention.Days = i
		}
	}
	if val := os.Getenv("CURSORAPI_USAGE_RETENTION_SCHEDULE"); val != "" {
		cfg.Usage.Retention.Schedule = val
	}
}
