package middleware

import "net/http"

// BodyLimitMiddleware caps how much of a request body handlers can read.
// Oversized bodies surface as *http.MaxBytesError from the handler's
// read, which the request parsers translate into a 413 answer. A zero or
// negative limit disables the cap.
func BodyLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
