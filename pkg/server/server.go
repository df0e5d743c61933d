// Package server assembles the HTTP surface of the gateway: the route
// table, the middleware chain, and the listener lifecycle.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/RelientS/cursor-api/pkg/config"
	"github.com/RelientS/cursor-api/pkg/proxy"
	"github.com/RelientS/cursor-api/pkg/proxy/handlers"
	"github.com/RelientS/cursor-api/pkg/proxy/middleware"
	"github.com/RelientS/cursor-api/pkg/telemetry/health"
	"github.com/RelientS/cursor-api/pkg/telemetry/metrics"
)

// Server owns the HTTP listener serving the gateway endpoints. Signal
// handling stays with the caller; cancel the Start context to stop.
type Server struct {
	store   *config.Store
	gateway *handlers.Gateway
	checker *health.Checker
	metrics *metrics.Collector

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New assembles a server around the gateway and its telemetry. checker
// and collector may be nil, which drops the health and metrics routes.
func New(store *config.Store, gateway *handlers.Gateway, checker *health.Checker, collector *metrics.Collector) *Server {
	return &Server{
		store:   store,
		gateway: gateway,
		checker: checker,
		metrics: collector,
	}
}

// Start starts the HTTP server and blocks until the context is canceled
// or the listener fails. The listen address, timeouts, and TLS settings
// are read from the configuration snapshot current at start time.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	cfg := s.store.Current()
	s.httpServer = &http.Server{
		Addr:           cfg.Server.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	if cfg.Server.TLS.Enabled {
		tlsConfig, err := configureTLS(cfg.Server.TLS)
		if err != nil {
			s.setRunning(false)
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"address", cfg.Server.ListenAddress,
			"tls_enabled", cfg.Server.TLS.Enabled,
		)

		var err error
		if cfg.Server.TLS.Enabled {
			err = s.httpServer.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("context canceled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.setRunning(false)
		return err
	}
}

func (s *Server) setRunning(running bool) {
	s.mu.Lock()
	s.isRunning = running
	s.mu.Unlock()
}

// Shutdown gracefully shuts down the server, letting in-flight requests
// finish within the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		timeout := s.store.Current().Server.ShutdownTimeout
		slog.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.setRunning(false)

		slog.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is accepting requests.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler builds the route table wrapped in the middleware chain. The
// completion endpoints answer in their own dialect; health and metrics
// are plain JSON and Prometheus text.
func (s *Server) Handler() http.Handler {
	cfg := s.store.Current()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", s.gateway.ChatCompletions)
	mux.HandleFunc("/v1/messages", s.gateway.Messages)
	mux.HandleFunc("/v1/models", s.gateway.Models)
	if s.checker != nil {
		mux.Handle("/health", s.checker.Handler())
	}
	if s.metrics != nil && cfg.Telemetry.Metrics.IsEnabled() {
		path := cfg.Telemetry.Metrics.Path
		if path == "" {
			path = config.DefaultMetricsPath
		}
		mux.Handle(path, s.metrics.Handler())
	}

	var stats *health.Stats
	if s.checker != nil {
		stats = s.checker.Stats()
	}

	var handler http.Handler = mux
	handler = middleware.BodyLimitMiddleware(proxy.MaxRequestBodySize)(handler)
	handler = middleware.TimeoutMiddleware(cfg.Server.RequestTimeout)(handler)
	handler = middleware.CORSMiddleware(cfg.Server.CORS)(handler)
	handler = middleware.RecoveryMiddleware(handler)
	handler = middleware.LoggingMiddleware(stats)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	return handler
}

// configureTLS builds the TLS settings for the listener.
func configureTLS(cfg config.TLSConfig) (*tls.Config, error) {
	if cfg.CertFile == "" {
		return nil, fmt.Errorf("TLS cert file not specified")
	}
	if cfg.KeyFile == "" {
		return nil, fmt.Errorf("TLS key file not specified")
	}
	if _, err := os.Stat(cfg.CertFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("TLS cert file not found: %s", cfg.CertFile)
	}
	if _, err := os.Stat(cfg.KeyFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("TLS key file not found: %s", cfg.KeyFile)
	}

	return &tls.Config{
		MinVersion: tls.VersionTLS13,
		CipherSuites: []uint16{
			tls.TLS_AES_128_GCM_SHA256,
			tls.TLS_AES_256_GCM_SHA384,
			tls.TLS_CHACHA20_POLY1305_SHA256,
		},
		PreferServerCipherSuites: true,
	}, nil
}
