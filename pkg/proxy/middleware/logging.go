package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/RelientS/cursor-api/pkg/telemetry/health"
)

// responseWriter wraps http.ResponseWriter to capture the status code and
// body size. Flush forwards to the underlying writer so SSE responses
// keep streaming through the wrapper.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// LoggingMiddleware emits one structured line per request and feeds the
// health endpoint's request counters. stats may be nil.
//
// Completion lines log at info, warn for 4xx and error for 5xx:
//
//	{"level":"INFO","msg":"request completed","method":"POST",
//	 "path":"/v1/chat/completions","status":200,"bytes":2048,
//	 "latency_ms":1250,"request_id":"..."}
func LoggingMiddleware(stats *health.Stats) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)
			if stats != nil {
				stats.RequestStarted()
			}

			slog.DebugContext(r.Context(), "request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)

			next.ServeHTTP(rw, r)

			latency := time.Since(start)
			if stats != nil {
				stats.RequestFinished(rw.statusCode >= 500)
			}

			level := slog.LevelInfo
			switch {
			case rw.statusCode >= 500:
				level = slog.LevelError
			case rw.statusCode >= 400:
				level = slog.LevelWarn
			}
			slog.Log(r.Context(), level, "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"bytes", rw.bytes,
				"latency_ms", latency.Milliseconds(),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}
