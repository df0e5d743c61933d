package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/RelientS/cursor-api/pkg/cli"
	"github.com/RelientS/cursor-api/pkg/config"
	"github.com/RelientS/cursor-api/pkg/proxy/handlers"
	"github.com/RelientS/cursor-api/pkg/server"
	"github.com/RelientS/cursor-api/pkg/telemetry/health"
	"github.com/RelientS/cursor-api/pkg/telemetry/logging"
	"github.com/RelientS/cursor-api/pkg/telemetry/metrics"
	"github.com/RelientS/cursor-api/pkg/upstream"
	"github.com/RelientS/cursor-api/pkg/usage"
	"github.com/RelientS/cursor-api/pkg/usage/recorder"
	"github.com/RelientS/cursor-api/pkg/usage/retention"
	"github.com/RelientS/cursor-api/pkg/usage/storage"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway server",
	Long: `Start the gateway server with the specified configuration.

The server listens on the configured address and serves the OpenAI and
Anthropic chat endpoints, translating both dialects onto the upstream
stream protocol.

Examples:
  # Start with default config
  cursor-api run

  # Start with custom config
  cursor-api run --config /etc/cursor-api/config.yaml

  # Override listen address
  cursor-api run --listen 0.0.0.0:8080

  # Validate config without starting server
  cursor-api run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	configPath := resolveConfigPath()
	cfg, err := config.LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	// Initialize logging based on config
	logger, logLevel, err := logging.New(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	// Print startup banner
	printBanner(cfg, configPath)

	store := config.NewStore(configPath, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create upstream client
	slog.Info("initializing upstream client", "base_url", cfg.Upstream.BaseURL)
	client := upstream.NewClient(upstream.ClientConfig{
		BaseURL:       cfg.Upstream.BaseURL,
		Token:         cfg.Upstream.AuthToken,
		Timeout:       cfg.Upstream.Timeout,
		MaxRetries:    cfg.Upstream.MaxRetries,
		ClientVersion: cfg.Upstream.ClientVersion,
		Timezone:      cfg.Upstream.Timezone,
	})
	defer client.Close()

	fmt.Println("✓ Upstream client ready")

	// Initialize usage accounting (if enabled)
	var usageStorage usage.Storage
	var usageRecorder *recorder.Recorder
	if cfg.Usage.IsEnabled() {
		slog.Info("initializing usage accounting", "backend", cfg.Usage.Backend)

		usageStorage, err = openUsageStorage(cfg)
		if err != nil {
			return err
		}
		defer usageStorage.Close()

		usageRecorder = recorder.NewRecorder(usageStorage, &recorder.Config{
			Enabled:      true,
			Buffer:       cfg.Usage.Recorder.Buffer,
			WriteTimeout: cfg.Usage.Recorder.WriteTimeout,
		})
		defer usageRecorder.Close()

		// Start retention scheduler if a schedule is configured
		if cfg.Usage.Retention.Schedule != "" {
			pruner := retention.NewPruner(usageStorage, &retention.Config{
				RetentionDays: cfg.Usage.Retention.Days,
				PruneSchedule: cfg.Usage.Retention.Schedule,
			})
			scheduler := retention.NewScheduler(pruner)
			if err := scheduler.Start(ctx); err != nil {
				slog.Warn("failed to start retention scheduler", "error", err)
			} else {
				defer scheduler.Stop()
				if next := scheduler.NextRun(); next != nil {
					slog.Debug("usage retention scheduler started", "next_run", next)
				}
			}
		}

		fmt.Println("✓ Usage store initialized")
	}

	// Telemetry
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	checker := health.New("cursor-api", Version, 0)
	checker.SetModelList(func() []string {
		models := store.Current().Models
		ids := make([]string, len(models))
		for i, m := range models {
			ids[i] = m.ID
		}
		return ids
	})
	if usageStorage != nil {
		checker.RegisterCheck("usage_store", usageStorage.Ping)
	}

	// Create the gateway and HTTP server
	slog.Info("creating HTTP server")
	gateway := handlers.NewGateway(handlers.Options{
		Upstream: client,
		Store:    store,
		Metrics:  collector,
		Recorder: usageRecorder,
		Logger:   logger,
	})
	srv := server.New(store, gateway, checker, collector)

	// Watch the configuration file for live reloads
	if configPath != "" {
		watcher, werr := config.NewWatcher(configPath, logger)
		if werr != nil {
			slog.Warn("configuration watching disabled", "error", werr)
		} else {
			go func() {
				_ = watcher.Watch(ctx, func() error {
					reloaded, rerr := store.Reload()
					if rerr != nil {
						return rerr
					}
					// Flag overrides win over the file on reloads too
					if runFlags.logLevel == "" && !verbose {
						if lvl, perr := logging.ParseLevel(reloaded.Telemetry.Logging.Level); perr == nil {
							logLevel.Set(lvl)
						}
					}
					slog.Info("configuration reloaded",
						"models", len(reloaded.Models),
						"log_level", logLevel.Level().String(),
					)
					return nil
				})
			}()
			defer watcher.Stop()
		}
	}

	// Start server in background goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	// Catch immediate startup failures before printing endpoints
	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case <-time.After(200 * time.Millisecond):
	}

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Chat endpoints: /v1/chat/completions, /v1/messages\n")
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for shutdown signal or server error
	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}

		fmt.Println("✓ Server stopped")
		return nil
	}
}

// openUsageStorage opens the store selected by the usage backend setting.
func openUsageStorage(cfg *config.Config) (usage.Storage, error) {
	switch cfg.Usage.Backend {
	case "sqlite":
		store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:        cfg.Usage.SQLite.Path,
			Driver:      cfg.Usage.SQLite.Driver,
			BusyTimeout: cfg.Usage.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storage: %w", err)
		}
		return store, nil
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported usage backend: %s (supported: sqlite, memory)", cfg.Usage.Backend)
	}
}

func printBanner(cfg *config.Config, configPath string) {
	fmt.Printf("cursor-api v%s\n", Version)
	if configPath != "" {
		fmt.Printf("Loading configuration from: %s\n", configPath)
	}
	fmt.Println("✓ Configuration loaded")

	slog.Debug("models configured", "count", len(cfg.Models))

	if cfg.Usage.IsEnabled() {
		slog.Debug("usage recording enabled", "backend", cfg.Usage.Backend)
	}
	if cfg.Telemetry.Metrics.IsEnabled() {
		slog.Debug("metrics enabled", "path", cfg.Telemetry.Metrics.Path)
	}
}
