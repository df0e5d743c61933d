package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StreamMetrics tracks metrics for the upstream streaming pipeline.
//
// Metrics:
//   - cursorapi_sessions_active: currently open upstream sessions
//   - cursorapi_upstream_frames_total: decoded and skipped frame counts
//   - cursorapi_upstream_errors_total: upstream errors by protocol code
type StreamMetrics struct {
	// Currently open sessions (gauge)
	sessionsActive prometheus.Gauge

	// Frame outcomes by result ("decoded", "skipped")
	framesTotal *prometheus.CounterVec

	// Upstream error counter by protocol error code
	errorsTotal *prometheus.CounterVec
}

// NewStreamMetrics creates and registers stream metrics with the provided registry.
func NewStreamMetrics(registry *prometheus.Registry) *StreamMetrics {
	sm := &StreamMetrics{
		sessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Number of currently open upstream sessions",
			},
		),

		framesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "frames_total",
				Help:      "Total number of upstream frames by result",
			},
			[]string{"result"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "errors_total",
				Help:      "Total number of upstream errors by protocol code",
			},
			[]string{"code"},
		),
	}

	registry.MustRegister(
		sm.sessionsActive,
		sm.framesTotal,
		sm.errorsTotal,
	)

	return sm
}

// SessionStarted increments the active session gauge.
func (sm *StreamMetrics) SessionStarted() {
	sm.sessionsActive.Inc()
}

// SessionEnded decrements the active session gauge.
func (sm *StreamMetrics) SessionEnded() {
	sm.sessionsActive.Dec()
}

// RecordFrames records the frame counts of a finished session.
func (sm *StreamMetrics) RecordFrames(decoded, skipped int) {
	if decoded > 0 {
		sm.framesTotal.WithLabelValues("decoded").Add(float64(decoded))
	}
	if skipped > 0 {
		sm.framesTotal.WithLabelValues("skipped").Add(float64(skipped))
	}
}

// RecordError records an upstream error by its protocol error code.
//
// Common codes:
//   - "rate_limited": upstream rate limit hit
//   - "usage_limit_exceeded": account quota exhausted
//   - "unauthorized": session token rejected
//   - "model_not_found": unknown model requested
func (sm *StreamMetrics) RecordError(code string) {
	sm.errorsTotal.WithLabelValues(code).Inc()
}
