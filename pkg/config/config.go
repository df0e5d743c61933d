package config

import "time"

// Config is the root configuration for the gateway. Sections cover the HTTP
// server, the upstream connection, stream decoding, downstream rendering,
// observability and usage accounting.
type Config struct {
	// Server configures the HTTP listener serving the completion endpoints.
	Server ServerConfig `yaml:"server"`

	// Upstream configures the connection to the chat backend.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Adapter configures downstream rendering behavior.
	Adapter AdapterConfig `yaml:"adapter"`

	// Session configures the per-response decode pipeline.
	Session SessionConfig `yaml:"session"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Usage configures request accounting.
	Usage UsageConfig `yaml:"usage"`

	// Models lists the model names served by the listing endpoint and
	// accepted by the completion endpoints. An empty list in the file
	// selects the default listing.
	Models []ModelConfig `yaml:"models"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:3000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response
	// writes. Zero disables the timeout; streaming responses outlive any
	// fixed write window, so zero is the default.
	// Default: 0
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request on a
	// kept-alive connection.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// requests during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestTimeout bounds one whole request through a context deadline,
	// streamed responses included. Zero disables the deadline and leaves
	// the upstream timeout as the effective bound.
	// Default: 0
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// TLS contains TLS listener configuration.
	TLS TLSConfig `yaml:"tls"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// TLSConfig contains TLS listener configuration.
type TLSConfig struct {
	// Enabled controls whether the server terminates TLS itself.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM certificate. Required when Enabled.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM private key. Required when Enabled.
	KeyFile string `yaml:"key_file"`
}

// CORSConfig contains CORS configuration for browser-based callers.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// AllowedOrigins lists the origins allowed to call the API.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// UpstreamConfig contains configuration for the chat backend connection.
type UpstreamConfig struct {
	// BaseURL is the backend origin.
	// Default: "https://api2.cursor.sh"
	BaseURL string `yaml:"base_url"`

	// AuthToken is the bearer token presented to the backend. Required;
	// there is no default.
	AuthToken string `yaml:"auth_token"`

	// Timeout bounds one whole exchange including the streamed response.
	// Zero selects the client default (5m).
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries bounds connection-level retries before the first response
	// byte. Zero selects the client default (2).
	MaxRetries int `yaml:"max_retries"`

	// ClientVersion is reported in the version header. Empty selects the
	// client default.
	ClientVersion string `yaml:"client_version"`

	// Timezone is reported in the timezone header. Empty selects the
	// client default.
	Timezone string `yaml:"timezone"`
}

// AdapterConfig contains configuration for downstream rendering.
type AdapterConfig struct {
	// IdentityPolicy selects how tool-call announcements resolve their
	// model-call identity: "collapse" rewrites every announcement to the
	// first identity seen on the stream, "passthrough" forwards announced
	// identities untouched.
	// Default: "collapse"
	IdentityPolicy string `yaml:"identity_policy"`
}

// SessionConfig contains configuration for the per-response pipeline.
type SessionConfig struct {
	// ChannelCapacity bounds the event channel between the decode stage
	// and the response writer.
	// Default: 100
	ChannelCapacity int `yaml:"channel_capacity"`

	// MaxFrameSize caps one upstream frame's declared payload length in
	// bytes.
	// Default: 8388608 (8MB)
	MaxFrameSize int `yaml:"max_frame_size"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum level emitted: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format selects the handler: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// UsageConfig contains request accounting configuration.
type UsageConfig struct {
	// Enabled controls whether completed requests are recorded.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Backend selects the store: "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains settings for the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains settings for the asynchronous writer.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains settings for record pruning.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains settings for the sqlite usage store.
type SQLiteConfig struct {
	// Path is the database file location.
	// Default: "data/usage.db"
	Path string `yaml:"path"`

	// Driver selects the registered database/sql driver: "sqlite3" (cgo)
	// or "sqlite" (pure Go).
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains settings for the asynchronous usage writer.
type RecorderConfig struct {
	// Buffer is the pending-record queue length. When the queue is full
	// new records are dropped rather than blocking request handling.
	// Default: 1000
	Buffer int `yaml:"buffer"`

	// WriteTimeout bounds one store write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains settings for usage record pruning.
type RetentionConfig struct {
	// Days is how long records are kept. Zero disables pruning.
	// Default: 90
	Days int `yaml:"days"`

	// Schedule is the cron expression for the pruning job.
	// Default: "0 3 * * *" (daily at 03:00)
	Schedule string `yaml:"schedule"`
}

// ModelConfig describes one model exposed by the listing endpoint.
type ModelConfig struct {
	// ID is the model name clients send (e.g. "claude-3.5-sonnet").
	ID string `yaml:"id"`

	// OwnedBy appears in the model listing. Empty is derived from the
	// model name family.
	OwnedBy string `yaml:"owned_by"`
}

// KnownModel reports whether id appears in the configured model list.
func (c *Config) KnownModel(id string) bool {
	for _, m := range c.Models {
		if m.ID == id {
			return true
		}
	}
	return false
}

// IsEnabled reports whether CORS handling is on. A nil flag counts as
// enabled, matching the default.
func (c *CORSConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IsEnabled reports whether the metrics endpoint is on. A nil flag
// counts as enabled, matching the default.
func (m *MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// IsEnabled reports whether usage recording is on. A nil flag counts
// as enabled, matching the default.
func (u *UsageConfig) IsEnabled() bool {
	return u.Enabled == nil || *u.Enabled
}
