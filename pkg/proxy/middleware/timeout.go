package middleware

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware puts a deadline on the request context. A zero or
// negative timeout disables the deadline.
//
// The middleware never writes the response itself. Everything downstream
// observes the deadline through the context: the upstream exchange aborts,
// the session tears down, and the handler answers with a gateway-timeout
// error or ends the stream. Writing a 504 from out here would race the
// handler's own writes on the same connection.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
