package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// requestDurationBuckets covers the latency range of LLM completions,
// from a fast cached reply to a long streamed generation (100ms - 30s).
var requestDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0}

// RequestMetrics tracks metrics for the downstream HTTP surface.
//
// Metrics:
//   - cursorapi_requests_total: request count by dialect, model, status
//   - cursorapi_request_duration_seconds: request duration histogram
//   - cursorapi_tokens_total: token counts by model and type
//   - cursorapi_response_size_bytes: response body size histogram
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	responseSize    *prometheus.HistogramVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of completion requests processed",
			},
			[]string{"dialect", "model", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of completion requests in seconds",
				Buckets:   requestDurationBuckets,
			},
			[]string{"dialect", "model"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "Total number of tokens reported by the upstream",
			},
			[]string{"model", "type"},
		),

		responseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "response_size_bytes",
				Help:      "Size of response bodies in bytes",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 8), // 256B to 4MB
			},
			[]string{"dialect"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.tokensTotal,
		rm.responseSize,
	)

	return rm
}

// RecordRequest records metrics for a completed request.
//
// Parameters:
//   - dialect: downstream API dialect
//   - model: model name (already cardinality-limited by the caller)
//   - status: HTTP status code as a string
//   - duration: total request duration
func (rm *RequestMetrics) RecordRequest(dialect, model, status string, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(dialect, model, status).Inc()
	rm.requestDuration.WithLabelValues(dialect, model).Observe(duration.Seconds())
}

// RecordTokens records token counts by type. Zero counts are skipped so
// requests without cache activity do not create empty series.
func (rm *RequestMetrics) RecordTokens(model string, input, output, cacheWrite, cacheRead int) {
	if input > 0 {
		rm.tokensTotal.WithLabelValues(model, "input").Add(float64(input))
	}
	if output > 0 {
		rm.tokensTotal.WithLabelValues(model, "output").Add(float64(output))
	}
	if cacheWrite > 0 {
		rm.tokensTotal.WithLabelValues(model, "cache_write").Add(float64(cacheWrite))
	}
	if cacheRead > 0 {
		rm.tokensTotal.WithLabelValues(model, "cache_read").Add(float64(cacheRead))
	}
}

// RecordResponseSize records the size of a response body.
func (rm *RequestMetrics) RecordResponseSize(dialect string, sizeBytes int) {
	if sizeBytes > 0 {
		rm.responseSize.WithLabelValues(dialect).Observe(float64(sizeBytes))
	}
}
