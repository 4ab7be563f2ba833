package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/translens/translens/internal/appid"
	"github.com/translens/translens/internal/config"
	"github.com/translens/translens/internal/core/engine"
	"github.com/translens/translens/internal/core/store"
	"github.com/translens/translens/internal/core/translator"
	errwrap "github.com/translens/translens/internal/errors"
	"github.com/translens/translens/internal/observability"
	"github.com/translens/translens/internal/server"
	"github.com/translens/translens/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// storeHealthChecker pings the translation store
type storeHealthChecker struct {
	db *store.Store
}

func (s storeHealthChecker) CheckHealth(ctx context.Context) error {
	if s.db == nil || s.db.DB == nil {
		return errwrap.NewDatabaseError("store not initialized")
	}
	if err := s.db.DB.PingContext(ctx); err != nil {
		return errwrap.WrapDatabaseError(ctx, err, "store ping failed")
	}
	return nil
}

// broadcasterHealthChecker verifies the quota push loop is running
type broadcasterHealthChecker struct {
	broadcaster *engine.Broadcaster
}

func (b broadcasterHealthChecker) CheckHealth(ctx context.Context) error {
	if b.broadcaster == nil || !b.broadcaster.Running() {
		return errwrap.NewInternalError("quota broadcaster not running")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the translation relay server",
	Long: `Start the HTTP server with graceful shutdown support.

All translation traffic passes through a shared sliding-window rate limiter.
Connected extensions receive quota updates over /api/v1/events (SSE).

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

On shutdown the server persists the rate limit window, stops the quota
broadcaster, closes the store, and flushes logs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Initialize server logger
		logLevel := viper.GetString("logging.level")
		observability.InitServerLogger(appid.BinaryName, logLevel)

		cfg, err := config.Load(ctx)
		if err != nil {
			observability.ServerLogger.Error("Failed to load configuration", zap.Error(err))
			return errwrap.WrapConfigInvalid(ctx, err, "configuration load failed")
		}

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(appid.BinaryName, cfg.Metrics.Port); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics",
					zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
			}
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", appid.BinaryName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Int("metrics_port", cfg.Metrics.Port),
			zap.Int("rate_limit_capacity", cfg.RateLimit.Capacity),
			zap.Duration("rate_limit_window", cfg.RateLimit.WindowDuration))

		// Open the store and run migrations
		db, err := store.Open(ctx, cfg.Store)
		if err != nil {
			observability.ServerLogger.Error("Failed to open store", zap.Error(err))
			return errwrap.WrapDatabaseError(ctx, err, "store open failed")
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			observability.ServerLogger.Error("Failed to migrate store", zap.Error(err))
			return errwrap.WrapDatabaseError(ctx, err, "store migration failed")
		}

		// Build the shared rate limit window, restoring the persisted
		// snapshot so restarts do not reset quota.
		limiter := engine.NewLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.WindowDuration)
		if cfg.RateLimit.PersistWindow {
			stamps, err := db.LoadWindow(ctx)
			if err != nil {
				observability.ServerLogger.Warn("Failed to restore rate limit window, starting empty",
					zap.Error(err))
			} else if len(stamps) > 0 {
				limiter.Restore(stamps)
				observability.ServerLogger.Info("Restored rate limit window",
					zap.Int("stamps", len(stamps)),
					zap.Int("remaining", limiter.Status().Remaining))
			}
		}

		// Translation backend client
		provider := translator.NewClient()
		provider.Timeout = cfg.Translator.Timeout
		provider.MaxRetries = cfg.Translator.MaxRetries

		// Event hub fans quota updates out to SSE subscribers
		hub := handlers.NewEventHub()
		handlers.InitEventHub(hub)

		governor := &engine.Governor{
			Limiter:  limiter,
			Provider: provider,
			Notifier: hub,
			Cache:    &store.TranslationCache{Store: db, TTL: cfg.Cache.TranslationTTL},
			Logger:   observability.ServerLogger,
		}

		handlers.InitTranslationAPI(&handlers.TranslationAPI{
			Governor:              governor,
			DefaultEndpoint:       cfg.Translator.Endpoint,
			DefaultAPIKey:         cfg.Translator.APIKey,
			DefaultTargetLanguage: cfg.Translator.TargetLanguage,
		})

		// Periodic quota push to connected extensions
		broadcaster := &engine.Broadcaster{
			Limiter:  limiter,
			Notifier: hub,
			Interval: cfg.Broadcast.Interval,
			Logger:   observability.ServerLogger,
		}
		broadcaster.Start(context.Background())

		// Initialize health manager
		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		hm.RegisterChecker("store", storeHealthChecker{db: db})
		hm.RegisterChecker("broadcaster", broadcasterHealthChecker{broadcaster: broadcaster})

		// Create server
		srv := server.New(cfg.Server)

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Persist the rate limit window and close the store
		signals.OnShutdown(func(ctx context.Context) error {
			if cfg.RateLimit.PersistWindow {
				observability.ServerLogger.Info("Persisting rate limit window...",
					zap.Int("stamps", len(limiter.Snapshot())))
				if err := db.SaveWindow(ctx, limiter.Snapshot()); err != nil {
					observability.ServerLogger.Warn("Failed to persist rate limit window",
						zap.Error(err))
				}
			}
			if err := db.Close(); err != nil {
				observability.ServerLogger.Warn("Store close returned error", zap.Error(err))
			}
			return nil
		})

		// Handler 3: Stop the quota broadcaster
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Stopping quota broadcaster...")
			broadcaster.Stop()
			return nil
		})

		// Handler 4: Shutdown HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Register config reload handler (SIGHUP)
		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: attempting config reload")

			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					observability.ServerLogger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				observability.ServerLogger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			observability.ServerLogger.Info("Configuration reloaded successfully",
				zap.String("file", viper.ConfigFileUsed()))

			// TODO: propagate reloaded rate_limit.capacity to the live limiter
			// instead of requiring a restart

			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		// Start server in background goroutine
		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		// Start signal listener in background
		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		// Wait for error or shutdown completion
		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
