package config

import (
	"strings"
	"time"
)

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:3000"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 0 * time.Second // streaming responses, no write deadline
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Upstream defaults
	DefaultUpstreamBaseURL = "https://api2.cursor.sh"

	// Adapter defaults
	DefaultIdentityPolicy = "collapse"

	// Session defaults
	DefaultChannelCapacity = 100
	DefaultMaxFrameSize    = 8 << 20

	// Telemetry defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "json"
	DefaultMetricsPath   = "/metrics"

	// Usage defaults
	DefaultUsageBackend      = "sqlite"
	DefaultSQLitePath        = "data/usage.db"
	DefaultSQLiteDriver      = "sqlite3"
	DefaultSQLiteBusyTimeout = 5 * time.Second
	DefaultRecorderBuffer    = 1000
	DefaultRecorderTimeout   = 5 * time.Second
	DefaultRetentionDays     = 90
	DefaultRetentionSchedule = "0 3 * * *"
)

// defaultModelIDs is the model listing served when the file configures none.
var defaultModelIDs = []string{
	"claude-3.5-sonnet",
	"claude-3.7-sonnet",
	"claude-3-opus",
	"gpt-4",
	"gpt-4o",
	"o1",
	"o3-mini",
	"deepseek-r1",
	"gemini-2.0-flash",
}

// DefaultModels returns the default model listing.
func DefaultModels() []ModelConfig {
	models := make([]ModelConfig, 0, len(defaultModelIDs))
	for _, id := range defaultModelIDs {
		models = append(models, ModelConfig{ID: id, OwnedBy: ownerForModel(id)})
	}
	return models
}

// ownerForModel derives the listing owner from the model name family.
func ownerForModel(id string) string {
	switch {
	case strings.HasPrefix(id, "claude"):
		return "anthropic"
	case strings.HasPrefix(id, "gpt"), strings.HasPrefix(id, "o1"), strings.HasPrefix(id, "o3"):
		return "openai"
	case strings.HasPrefix(id, "gemini"):
		return "google"
	case strings.HasPrefix(id, "deepseek"):
		return "deepseek"
	default:
		return "cursor"
	}
}

// Default returns a configuration with every default applied and no
// upstream credentials set.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. It is
// idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.CORS.Enabled == nil {
		cfg.Server.CORS.Enabled = boolPtr(true)
	}
	if len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS.AllowedOrigins = []string{"*"}
	}

	// Upstream defaults
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = DefaultUpstreamBaseURL
	}

	// Adapter defaults
	if cfg.Adapter.IdentityPolicy == "" {
		cfg.Adapter.IdentityPolicy = DefaultIdentityPolicy
	}

	// Session defaults
	if cfg.Session.ChannelCapacity == 0 {
		cfg.Session.ChannelCapacity = DefaultChannelCapacity
	}
	if cfg.Session.MaxFrameSize == 0 {
		cfg.Session.MaxFrameSize = DefaultMaxFrameSize
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Enabled == nil {
		cfg.Telemetry.Metrics.Enabled = boolPtr(true)
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}

	// Usage defaults
	if cfg.Usage.Enabled == nil {
		cfg.Usage.Enabled = boolPtr(true)
	}
	if cfg.Usage.Backend == "" {
		cfg.Usage.Backend = DefaultUsageBackend
	}
	if cfg.Usage.SQLite.Path == "" {
		cfg.Usage.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Usage.SQLite.Driver == "" {
		cfg.Usage.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.Usage.SQLite.BusyTimeout == 0 {
		cfg.Usage.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Usage.Recorder.Buffer == 0 {
		cfg.Usage.Recorder.Buffer = DefaultRecorderBuffer
	}
	if cfg.Usage.Recorder.WriteTimeout == 0 {
		cfg.Usage.Recorder.WriteTimeout = DefaultRecorderTimeout
	}
	if cfg.Usage.Retention.Days == 0 {
		cfg.Usage.Retention.Days = DefaultRetentionDays
	}
	if cfg.Usage.Retention.Schedule == "" {
		cfg.Usage.Retention.Schedule = DefaultRetentionSchedule
	}

	// Model listing default
	if len(cfg.Models) == 0 {
		cfg.Models = DefaultModels()
	} else {
		for i := range cfg.Models {
			if cfg.Models[i].OwnedBy == "" {
				cfg.Models[i].OwnedBy = ownerForModel(cfg.Models[i].ID)
			}
		}
	}
}

func boolPtr(v bool) *bool { return &v }
