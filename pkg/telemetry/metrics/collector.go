package metrics

import (
	"sync"
	"time"

	"github.com/RelientS/cursor-api/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// namespace prefixes every metric exported by this package.
const namespace = "cursorapi"

// maxModelCardinality bounds the number of distinct model label values.
// The model name comes from the request body, so it is client-controlled.
const maxModelCardinality = 256

// Collector is the orchestrator for all Prometheus metrics in the gateway.
// It manages metric registration and provides a unified interface for
// recording metrics across the HTTP surface and the upstream pipeline.
//
// All recording methods are safe for concurrent use and become no-ops when
// metrics are disabled in the configuration.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	// Request metrics (HTTP surface)
	requestMetrics *RequestMetrics

	// Stream metrics (upstream pipeline)
	streamMetrics *StreamMetrics

	// Cardinality tracking for the client-controlled model label
	models *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is created. A nil cfg counts as enabled.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	http.Handle("/metrics", collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &config.MetricsConfig{}
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		enabled:  cfg.IsEnabled(),
		registry: registry,
		models:   NewCardinalityLimiter(maxModelCardinality),
	}

	c.requestMetrics = NewRequestMetrics(registry)
	c.streamMetrics = NewStreamMetrics(registry)

	return c
}

// RecordRequest records metrics for a completed request.
//
// Parameters:
//   - dialect: downstream API dialect ("openai", "anthropic")
//   - model: model name from the request body
//   - status: HTTP status code as a string (e.g. "200", "429")
//   - duration: total request duration
//
// Example:
//
//	collector.RecordRequest("openai", "gpt-4o", "200", 1200*time.Millisecond)
func (c *Collector) RecordRequest(dialect, model, status string, duration time.Duration) {
	if !c.enabled {
		return
	}

	c.requestMetrics.RecordRequest(dialect, c.modelLabel(model), status, duration)
}

// RecordTokens records token counts reported by the upstream for a request.
// Zero counts are skipped.
func (c *Collector) RecordTokens(model string, input, output, cacheWrite, cacheRead int) {
	if !c.enabled {
		return
	}

	c.requestMetrics.RecordTokens(c.modelLabel(model), input, output, cacheWrite, cacheRead)
}

// RecordResponseBytes records the size of a response body written to the
// downstream client.
func (c *Collector) RecordResponseBytes(dialect string, bytes int) {
	if !c.enabled {
		return
	}

	c.requestMetrics.RecordResponseSize(dialect, bytes)
}

// SessionStarted records the start of an upstream streaming session.
func (c *Collector) SessionStarted() {
	if !c.enabled {
		return
	}

	c.streamMetrics.SessionStarted()
}

// SessionEnded records the end of an upstream streaming session.
func (c *Collector) SessionEnded() {
	if !c.enabled {
		return
	}

	c.streamMetrics.SessionEnded()
}

// RecordFrames records how many upstream frames a finished session decoded
// and how many it skipped.
func (c *Collector) RecordFrames(decoded, skipped int) {
	if !c.enabled {
		return
	}

	c.streamMetrics.RecordFrames(decoded, skipped)
}

// RecordUpstreamError records an error signalled by the upstream, labelled
// by its protocol error code (e.g. "rate_limited", "usage_limit_exceeded").
func (c *Collector) RecordUpstreamError(code string) {
	if !c.enabled {
		return
	}

	c.streamMetrics.RecordError(code)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// modelLabel returns the label value to use for a model name, folding new
// values into "other" once the cardinality limit is reached.
func (c *Collector) modelLabel(model string) string {
	if model == "" {
		return "unknown"
	}
	if !c.models.Allow(model) {
		return "other"
	}
	return model
}

// CardinalityLimiter bounds the number of unique values observed for a
// label, protecting the registry from unbounded client input.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label value is allowed. Returns true if the value has
// been seen before or if the limit has not been reached yet. Returns false
// if admitting this value would exceed the limit.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[value]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
