package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfigFile writes content to a fresh temp file and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	configPath := writeConfigFile(t, `
server:
  listen_address: "0.0.0.0:8080"
  read_timeout: "60s"

upstream:
  base_url: "https://gateway.example.com"
  auth_token: "test-token-123"
  timeout: "45s"

adapter:
  identity_policy: "passthrough"

session:
  channel_capacity: 64
  max_frame_size: 1048576

telemetry:
  logging:
    level: "debug"
    format: "text"

usage:
  enabled: false

models:
  - id: "claude-3.5-sonnet"
  - id: "gpt-4o"
    owned_by: "azure"
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify loaded values
	if cfg.Server.ListenAddress != "0.0.0.0:8080" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:8080", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("expected read timeout %v, got %v", 60*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Upstream.BaseURL != "https://gateway.example.com" {
		t.Errorf("expected base URL %q, got %q", "https://gateway.example.com", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.AuthToken != "test-token-123" {
		t.Errorf("expected auth token %q, got %q", "test-token-123", cfg.Upstream.AuthToken)
	}
	if cfg.Upstream.Timeout != 45*time.Second {
		t.Errorf("expected upstream timeout %v, got %v", 45*time.Second, cfg.Upstream.Timeout)
	}
	if cfg.Adapter.IdentityPolicy != "passthrough" {
		t.Errorf("expected identity policy %q, got %q", "passthrough", cfg.Adapter.IdentityPolicy)
	}
	if cfg.Session.ChannelCapacity != 64 {
		t.Errorf("expected channel capacity 64, got %d", cfg.Session.ChannelCapacity)
	}
	if cfg.Session.MaxFrameSize != 1048576 {
		t.Errorf("expected max frame size 1048576, got %d", cfg.Session.MaxFrameSize)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Telemetry.Logging.Level)
	}
	if cfg.Usage.IsEnabled() {
		t.Error("expected usage recording disabled")
	}

	// Unset fields still receive defaults
	if cfg.Server.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("expected default shutdown timeout %v, got %v", DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	}

	// Model owners are derived from the name family unless set explicitly
	if len(cfg.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(cfg.Models))
	}
	if cfg.Models[0].OwnedBy != "anthropic" {
		t.Errorf("expected derived owner %q, got %q", "anthropic", cfg.Models[0].OwnedBy)
	}
	if cfg.Models[1].OwnedBy != "azure" {
		t.Errorf("expected explicit owner %q, got %q", "azure", cfg.Models[1].OwnedBy)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
	if !strings.Contains(err.Error(), "no such file or directory") {
		t.Errorf("expected file not found error, got: %v", err)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	configPath := writeConfigFile(t, `
server:
  listen_address: "0.0.0.0:8080"
  invalid yaml here: [
`)

	if _, err := LoadConfig(configPath); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	// No auth token and a bad identity policy
	configPath := writeConfigFile(t, `
adapter:
  identity_policy: "both"
`)

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError in error chain, got %T: %v", err, err)
	}

	fields := make(map[string]bool)
	for _, fe := range validationErr.Errors {
		fields[fe.Field] = true
	}
	if !fields["upstream.auth_token"] {
		t.Errorf("expected upstream.auth_token error, got %v", validationErr.Errors)
	}
	if !fields["adapter.identity_policy"] {
		t.Errorf("expected adapter.identity_policy error, got %v", validationErr.Errors)
	}
}

func TestLoadConfig_MinimalFileGetsDefaults(t *testing.T) {
	configPath := writeConfigFile(t, `
upstream:
  auth_token: "test-token"
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected default listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
	}
	if cfg.Upstream.BaseURL != DefaultUpstreamBaseURL {
		t.Errorf("expected default base URL %q, got %q", DefaultUpstreamBaseURL, cfg.Upstream.BaseURL)
	}
	if cfg.Adapter.IdentityPolicy != DefaultIdentityPolicy {
		t.Errorf("expected default identity policy %q, got %q", DefaultIdentityPolicy, cfg.Adapter.IdentityPolicy)
	}
	if cfg.Session.ChannelCapacity != DefaultChannelCapacity {
		t.Errorf("expected default channel capacity %d, got %d", DefaultChannelCapacity, cfg.Session.ChannelCapacity)
	}
	if cfg.Session.MaxFrameSize != DefaultMaxFrameSize {
		t.Errorf("expected default max frame size %d, got %d", DefaultMaxFrameSize, cfg.Session.MaxFrameSize)
	}
	if !cfg.Telemetry.Metrics.IsEnabled() {
		t.Error("expected metrics enabled by default")
	}
	if !cfg.Usage.IsEnabled() {
		t.Error("expected usage recording enabled by default")
	}
	if cfg.Usage.Retention.Schedule != DefaultRetentionSchedule {
		t.Errorf("expected default retention schedule %q, got %q", DefaultRetentionSchedule, cfg.Usage.Retention.Schedule)
	}
	if len(cfg.Models) == 0 {
		t.Error("expected default model listing")
	}
}

func TestLoadConfigWithEnvOverrides_BasicOverrides(t *testing.T) {
	configPath := writeConfigFile(t, `
server:
  listen_address: "127.0.0.1:8080"

upstream:
  auth_token: "file-token"

telemetry:
  logging:
    level: "info"
    format: "json"
`)

	t.Setenv("CURSORAPI_SERVER_LISTEN_ADDRESS", "0.0.0.0:9090")
	t.Setenv("CURSORAPI_UPSTREAM_AUTH_TOKEN", "env-token-override")
	t.Setenv("CURSORAPI_TELEMETRY_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("expected listen address %q from env, got %q", "0.0.0.0:9090", cfg.Server.ListenAddress)
	}
	if cfg.Upstream.AuthToken != "env-token-override" {
		t.Errorf("expected auth token %q from env, got %q", "env-token-override", cfg.Upstream.AuthToken)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q from env, got %q", "debug", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfigWithEnvOverrides_TypedValues(t *testing.T) {
	configPath := writeConfigFile(t, `
upstream:
  auth_token: "test-token"
`)

	t.Setenv("CURSORAPI_SERVER_READ_TIMEOUT", "120s")
	t.Setenv("CURSORAPI_SESSION_CHANNEL_CAPACITY", "256")
	t.Setenv("CURSORAPI_TELEMETRY_METRICS_ENABLED", "false")
	t.Setenv("CURSORAPI_USAGE_RETENTION_DAYS", "30")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ReadTimeout != 120*time.Second {
		t.Errorf("expected read timeout %v, got %v", 120*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Session.ChannelCapacity != 256 {
		t.Errorf("expected channel capacity 256, got %d", cfg.Session.ChannelCapacity)
	}
	if cfg.Telemetry.Metrics.IsEnabled() {
		t.Error("expected metrics disabled via env")
	}
	if cfg.Usage.Retention.Days != 30 {
		t.Errorf("expected retention days 30, got %d", cfg.Usage.Retention.Days)
	}
}

func TestLoadConfigWithEnvOverrides_EmptyPath(t *testing.T) {
	t.Setenv("CURSORAPI_UPSTREAM_AUTH_TOKEN", "env-only-token")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config from environment alone: %v", err)
	}

	if cfg.Upstream.AuthToken != "env-only-token" {
		t.Errorf("expected auth token %q, got %q", "env-only-token", cfg.Upstream.AuthToken)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected default listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverrideFailsValidation(t *testing.T) {
	configPath := writeConfigFile(t, `
upstream:
  auth_token: "test-token"
`)

	t.Setenv("CURSORAPI_ADAPTER_IDENTITY_POLICY", "mangle")

	_, err := LoadConfigWithEnvOverrides(configPath)
	if err == nil {
		t.Fatal("expected validation error for bad identity policy override")
	}

	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
}
