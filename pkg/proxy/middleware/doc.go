// Package middleware provides the HTTP middleware the gateway's endpoints
// share: request ids, request logging, panic recovery, CORS, deadlines,
// and body size limits.
//
// # Chain Order
//
// The server assembles the chain outermost first:
//
//	handler = RequestID(Logging(Recovery(CORS(Timeout(BodyLimit(mux))))))
//
// RequestID runs first so every log line, including the recovery path,
// carries the id. Recovery sits inside Logging so a panicking request
// still produces a completion line with status 500.
//
// # Context And Logs
//
// The request id lands in the request context through the
// pkg/telemetry/logging helpers. Handlers and middleware log with the
// *Context slog methods, and the context handler installed at startup
// lifts the id, dialect and model into every record, so middleware never
// attaches those keys itself.
//
// # Streaming
//
// The response writer wrapper used for logging forwards Flush, so SSE
// responses stream through the chain unbuffered. TimeoutMiddleware only
// installs a context deadline instead of racing the handler with a
// second writer; a request that outlives its deadline surfaces as a
// gateway-timeout error from whatever stage observes the context first.
package middleware
