package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/RelientS/cursor-api/pkg/adapter"
)

// RecoveryMiddleware turns handler panics into a 500 answer in the
// requesting dialect's error envelope instead of a dropped connection.
// The stack trace is logged, never exposed to the client. If the panic
// happened after headers went out, the body write degrades to a trailing
// fragment on the stream; nothing better is possible at that point.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				slog.ErrorContext(r.Context(), "panic in handler",
					"panic", v,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				body := adapter.OpenAIError("processing_failed", "internal server error")
				if strings.HasPrefix(r.URL.Path, "/v1/messages") {
					body = adapter.AnthropicError("processing_failed", "internal server error")
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write(body)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
