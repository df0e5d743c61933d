// Package server assembles and runs the gateway's HTTP surface.
//
// The package is the top-level orchestrator that:
//   - Registers the completion, model listing, health, and metrics routes
//   - Chains middleware for cross-cutting concerns
//   - Configures TLS termination
//   - Manages graceful shutdown
//
// # Basic Usage
//
// Creating and starting a server:
//
//	store := config.NewStore(path, cfg)
//	client := upstream.NewClient(upstream.ClientConfig{
//	    BaseURL: cfg.Upstream.BaseURL,
//	    Token:   cfg.Upstream.AuthToken,
//	})
//	gateway := handlers.NewGateway(handlers.Options{Upstream: client, Store: store})
//
//	srv := server.New(store, gateway, checker, collector)
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until the context is canceled or the listener fails.
// Signal handling belongs to the caller: cancel the context on SIGTERM
// and Start performs the graceful shutdown.
//
// The shutdown process:
//  1. Stops accepting new connections
//  2. Waits for active connections to complete (up to shutdown timeout)
//  3. Forces connection closure if timeout exceeded
//
// # Routes
//
//   - POST /v1/chat/completions - OpenAI-dialect chat completion
//   - POST /v1/messages - Anthropic-dialect messages
//   - GET /v1/models - model listing
//   - GET /health - health report with component checks
//   - GET /metrics - Prometheus metrics (path configurable)
//
// # Middleware Chain
//
// Requests pass through the following middleware (outermost to innermost):
//  1. RequestID: assigns or propagates the request id
//  2. Logging: one structured line per request
//  3. Recovery: turns panics into 500 answers
//  4. CORS: Cross-Origin Resource Sharing headers
//  5. Timeout: per-request context deadline
//  6. BodyLimit: caps request body reads
//
// # TLS Support
//
// The server supports TLS 1.3 with configurable certificates:
//
//	server:
//	  tls:
//	    enabled: true
//	    cert_file: "/path/to/cert.pem"
//	    key_file: "/path/to/key.pem"
//
// TLS configuration enforces TLS 1.3, secure cipher suites only, and
// server cipher suite preference.
package server
