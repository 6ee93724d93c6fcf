package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/ai"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/google"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/instrumentation"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/logging"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/server"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/store"
)

// callbackPath is where Google redirects after consent.
const callbackPath = "/auth/google/callback"

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// ServeConfig holds everything the serve command needs.
type ServeConfig struct {
	HTTPAddr string
	BaseURL  string

	GoogleClientID     string
	GoogleClientSecret string

	AIBaseURL string
	AITimeout time.Duration

	Store store.Config

	CalendarBackend string
	NumThemes       int
	SessionTimeout  time.Duration

	Debug     bool
	LogFormat string

	Metrics MetricsConfig
}

func newServeCmd() *cobra.Command {
	var (
		envFile string
		cfg     ServeConfig
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		Long: `Start the SmartMail HTTP gateway.

Google sign-in:
  --google-client-id and --google-client-secret
  OR GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars (required)

  The OAuth redirect URI registered with Google must be
  <base-url>/auth/google/callback.

Storage (meeting cache, inbox filters):
  --store-type memory|firebase|redis|postgres OR STORE_TYPE env var
  The memory store loses everything on restart.

Meeting booking:
  --calendar-backend ai     books through the AI backend (default)
  --calendar-backend google books directly in the user's Google Calendar`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(envFile); err != nil {
				return err
			}
			if err := loadServeEnvVars(cmd, &cfg); err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to a .env file (default: ./.env when present)")
	cmd.Flags().BoolVar(&cfg.Debug, "debug", false, "Enable debug logging. Can also use DEBUG env var.")
	cmd.Flags().StringVar(&cfg.LogFormat, "log-format", logging.FormatText, "Log format: text or json. Can also use LOG_FORMAT env var.")
	cmd.Flags().StringVar(&cfg.HTTPAddr, "http-addr", ":8080", "HTTP server address. Can also use HTTP_ADDR env var.")
	cmd.Flags().StringVar(&cfg.BaseURL, "base-url", "http://localhost:8080", "Public base URL of the gateway. Can also use BASE_URL env var.")

	cmd.Flags().StringVar(&cfg.GoogleClientID, "google-client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&cfg.GoogleClientSecret, "google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")

	cmd.Flags().StringVar(&cfg.AIBaseURL, "ai-base-url", ai.DefaultBaseURL, "AI backend base URL. Can also use AI_BASE_URL env var.")
	cmd.Flags().DurationVar(&cfg.AITimeout, "ai-timeout", ai.DefaultTimeout, "Timeout for a single AI backend call. Can also use AI_TIMEOUT env var.")

	// Storage flags
	cmd.Flags().StringVar(&cfg.Store.Type, "store-type", store.TypeMemory, "Store backend: memory, firebase, redis or postgres. Can also use STORE_TYPE env var.")
	cmd.Flags().StringVar(&cfg.Store.FirebaseDatabaseURL, "firebase-database-url", "", "Firebase Realtime Database URL. Can also use FIREBASE_DATABASE_URL env var.")
	cmd.Flags().StringVar(&cfg.Store.FirebaseCredentials, "firebase-credentials", "", "Path to a Firebase service account file. Can also use FIREBASE_CREDENTIALS env var.")
	cmd.Flags().StringVar(&cfg.Store.RedisURL, "redis-url", "", "Redis URL (e.g., redis://localhost:6379/0). Can also use REDIS_URL env var.")
	cmd.Flags().StringVar(&cfg.Store.RedisKeyPrefix, "redis-key-prefix", "smartmail:", "Prefix for all Redis keys. Can also use REDIS_KEY_PREFIX env var.")
	cmd.Flags().StringVar(&cfg.Store.PostgresDSN, "postgres-dsn", "", "Postgres connection string. Can also use POSTGRES_DSN env var.")

	cmd.Flags().StringVar(&cfg.CalendarBackend, "calendar-backend", server.CalendarBackendAI, "Meeting booking backend: ai or google. Can also use CALENDAR_BACKEND env var.")
	cmd.Flags().IntVar(&cfg.NumThemes, "num-themes", ai.DefaultThemes, "Themes requested per attachment classification. Can also use NUM_THEMES env var.")
	cmd.Flags().DurationVar(&cfg.SessionTimeout, "session-timeout", server.DefaultSessionTimeout, "Idle time after which a session expires. Can also use SESSION_TIMEOUT env var.")

	// Metrics server flags
	cmd.Flags().BoolVar(&cfg.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&cfg.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadServeEnvVars fills cfg from environment variables for every flag
// that was not set explicitly.
func loadServeEnvVars(cmd *cobra.Command, cfg *ServeConfig) error {
	envString(cmd, "log-format", "LOG_FORMAT", &cfg.LogFormat)
	envString(cmd, "http-addr", "HTTP_ADDR", &cfg.HTTPAddr)
	envString(cmd, "base-url", "BASE_URL", &cfg.BaseURL)
	envString(cmd, "google-client-id", "GOOGLE_CLIENT_ID", &cfg.GoogleClientID)
	envString(cmd, "google-client-secret", "GOOGLE_CLIENT_SECRET", &cfg.GoogleClientSecret)
	envString(cmd, "ai-base-url", "AI_BASE_URL", &cfg.AIBaseURL)
	envString(cmd, "store-type", "STORE_TYPE", &cfg.Store.Type)
	envString(cmd, "firebase-database-url", "FIREBASE_DATABASE_URL", &cfg.Store.FirebaseDatabaseURL)
	envString(cmd, "firebase-credentials", "FIREBASE_CREDENTIALS", &cfg.Store.FirebaseCredentials)
	envString(cmd, "redis-url", "REDIS_URL", &cfg.Store.RedisURL)
	envString(cmd, "redis-key-prefix", "REDIS_KEY_PREFIX", &cfg.Store.RedisKeyPrefix)
	envString(cmd, "postgres-dsn", "POSTGRES_DSN", &cfg.Store.PostgresDSN)
	envString(cmd, "calendar-backend", "CALENDAR_BACKEND", &cfg.CalendarBackend)
	envString(cmd, "metrics-addr", "METRICS_ADDR", &cfg.Metrics.Addr)

	if err := envBool(cmd, "debug", "DEBUG", &cfg.Debug); err != nil {
		return err
	}
	if err := envBool(cmd, "metrics-enabled", "METRICS_ENABLED", &cfg.Metrics.Enabled); err != nil {
		return err
	}
	if err := envDuration(cmd, "ai-timeout", "AI_TIMEOUT", &cfg.AITimeout); err != nil {
		return err
	}
	if err := envDuration(cmd, "session-timeout", "SESSION_TIMEOUT", &cfg.SessionTimeout); err != nil {
		return err
	}
	return envInt(cmd, "num-themes", "NUM_THEMES", &cfg.NumThemes)
}

// Validate checks the settings runServe cannot start without.
func (c ServeConfig) Validate() error {
	if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
		return errors.New("google client ID and secret are required (--google-client-id/--google-client-secret or GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET)")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base URL must start with http:// or https:// (got %q)", c.BaseURL)
	}
	if c.NumThemes < ai.MinThemes || c.NumThemes > ai.MaxThemes {
		return fmt.Errorf("num-themes must be between %d and %d", ai.MinThemes, ai.MaxThemes)
	}
	return nil
}

// RedirectURL is the OAuth callback URL derived from the base URL.
func (c ServeConfig) RedirectURL() string {
	return strings.TrimRight(c.BaseURL, "/") + callbackPath
}

func runServe(cfg ServeConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.New(logging.Options{Debug: cfg.Debug, Format: cfg.LogFormat})
	slog.SetDefault(logger)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Logger = logger

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("Error during instrumentation shutdown", logging.Err(err))
		}
	}()

	var metrics *instrumentation.Metrics
	if provider.Enabled() {
		metrics = provider.Metrics()
	}

	kv, err := store.Open(shutdownCtx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store.Type, err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.Error("Error closing store", logging.Err(err))
		}
	}()

	tokenStore := google.NewStore(cfg.SessionTimeout)
	tokenStore.SetLogger(logger)
	defer tokenStore.Stop()

	tokens := google.NewManager(google.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.RedirectURL(),
		Metrics:      metrics,
		Logger:       logger,
	}, tokenStore)

	backend := ai.New(ai.Config{
		BaseURL: cfg.AIBaseURL,
		Timeout: cfg.AITimeout,
		Metrics: metrics,
		Logger:  logger,
	})

	srv, err := server.New(server.Config{
		BaseURL:         cfg.BaseURL,
		SessionTimeout:  cfg.SessionTimeout,
		CalendarBackend: cfg.CalendarBackend,
		NumThemes:       cfg.NumThemes,
	}, server.Deps{
		Tokens:  tokens,
		Store:   kv,
		AI:      backend,
		Metrics: metrics,
		Audit:   provider.AuditLogger(logger),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && provider.MetricsHandler() != nil {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server stopped", logging.Err(err))
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("Starting SmartMail gateway",
		"addr", cfg.HTTPAddr,
		"base_url", cfg.BaseURL,
		"store", cfg.Store.Type,
		"calendar_backend", cfg.CalendarBackend,
		"ai_backend", cfg.AIBaseURL)
	if cfg.Store.Type == store.TypeMemory {
		logger.Warn("Using the in-memory store; booked meetings and inbox filters are lost on restart")
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	var runErr error
	select {
	case <-shutdownCtx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
	case err := <-serverDone:
		if err != nil {
			runErr = fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancelShutdown()

	srv.Health().SetReady(false)
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down HTTP server", logging.Err(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("Gateway shutdown incomplete", logging.Err(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error("Error during metrics server shutdown", logging.Err(err))
		}
	}

	if runErr == nil {
		logger.Info("HTTP server gracefully stopped")
	}
	return runErr
}
