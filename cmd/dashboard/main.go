package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/dashboard/internal/config"
	"github.com/ehr/dashboard/internal/dashboard"
	"github.com/ehr/dashboard/internal/platform/backend"
	"github.com/ehr/dashboard/internal/platform/metrics"
	"github.com/ehr/dashboard/internal/platform/middleware"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "dashboard",
		Short:        "Clinical analytics dashboard service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(backendCmd())
	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(env string, w io.Writer) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// loadConfig loads and validates the configuration of every command that
// talks to the stats backend.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.RequireBackend(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newFetcher builds the backend client with the configured prefix fallback.
func newFetcher(cfg *config.Config) *backend.Fetcher {
	client := backend.NewClient(cfg.BackendURL, backend.WithTimeout(cfg.FetchTimeout))
	return backend.NewFetcher(client, cfg.APIPrefix)
}

func newDashboard(cfg *config.Config, logger zerolog.Logger, fetcher dashboard.Fetcher, rec dashboard.Recorder) *dashboard.Dashboard {
	agg := dashboard.NewAggregator(fetcher, logger,
		dashboard.WithConcurrency(cfg.MaxConcurrentFetches),
		dashboard.WithRecorder(rec),
	)
	return dashboard.NewDashboard(agg, dashboard.DefaultRequestSpecs(), logger)
}

// newServer wires the dashboard API. files may be nil to disable downloads.
func newServer(cfg *config.Config, logger zerolog.Logger, fetcher dashboard.Fetcher, files backend.Downloader) *echo.Echo {
	collector := metrics.New()
	dash := newDashboard(cfg, logger, fetcher, collector)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(collector.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/dashboard/download"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/metrics", echo.WrapHandler(collector.Handler()))

	dashboard.NewHandler(dash, files, cfg.DefaultRangeDays, logger).RegisterRoutes(e.Group("/dashboard"))
	return e
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"), os.Stdout)

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	fetcher := newFetcher(cfg)
	e := newServer(cfg, logger, fetcher, fetcher)
	logger.Info().
		Str("backend", cfg.BackendURL).
		Str("prefix", cfg.APIPrefix).
		Int("max_concurrent_fetches", cfg.MaxConcurrentFetches).
		Msg("dashboard configured")

	return serve(e, ":"+cfg.Port, logger)
}

// serve runs e until SIGINT or SIGTERM, then shuts it down gracefully.
func serve(e *echo.Echo, addr string, logger zerolog.Logger) error {
	go func() {
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
