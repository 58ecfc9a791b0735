package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/gaeaops/fleetkeeper/internal/aggregator"
	"github.com/gaeaops/fleetkeeper/internal/api"
	"github.com/gaeaops/fleetkeeper/internal/config"
	"github.com/gaeaops/fleetkeeper/internal/fleet/manager"
	"github.com/gaeaops/fleetkeeper/internal/gaea"
	"github.com/gaeaops/fleetkeeper/internal/store"
	"github.com/gaeaops/fleetkeeper/internal/telemetry"
	"github.com/gaeaops/fleetkeeper/internal/versions"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the fleet daemon",
	Long: `Start the keepalive fleet daemon and its control API.

Accounts are managed at runtime through the REST API. With a database
configured, stored account credentials are imported on startup.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
	serverRequestTimeout   = 10 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 15 * time.Second // Must exceed serverRequestTimeout so middleware handles the timeout
	serverIdleTimeout      = 60 * time.Second
)

func init() {
	serveCmd.Flags().String("address", "", "Address to listen on (overrides config)")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		slog.Error("Error binding address flag", "error", err)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		slog.Error("Error binding config flag", "error", err)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewLoader().Load(viper.GetString("config"))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	address := viper.GetString("address")
	if address == "" {
		address = cfg.GetAddress()
	}

	logBuffer.SetCapacity(cfg.GetLogBufferSize())

	info := versions.GetVersionInfo()
	slog.Info("Starting fleet daemon", "version", info.Version, "address", address)

	telemetryProvider, err := telemetry.NewProvider(ctx, cfg.Metrics, info.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryProvider.Shutdown(context.Background()); err != nil {
			slog.Warn("Failed to shut down telemetry", "error", err)
		}
	}()

	fleetMetrics, err := telemetry.NewFleetMetrics(telemetryProvider.MeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create fleet metrics: %w", err)
	}

	client := gaea.NewHTTPClient(
		gaea.WithBaseURL(cfg.GetBaseURL()),
		gaea.WithVersion(cfg.GetClientVersion()),
		gaea.WithTimeout(cfg.GetRequestTimeout()),
	)

	mgr := manager.New(client, manager.Config{
		PingInterval:      cfg.GetPingInterval(),
		ErrorBackoff:      cfg.GetErrorBackoff(),
		StartJitterWindow: cfg.GetStartJitterWindow(),
	}, manager.WithMetrics(fleetMetrics))
	defer mgr.Close()

	if cfg.Database != nil {
		if err := importAccounts(ctx, cfg, mgr); err != nil {
			// The fleet still works without the import; accounts can be
			// pushed over the API.
			slog.Warn("Account import failed", "error", err)
		}
	}

	agg := aggregator.New(mgr, client,
		aggregator.WithInterval(cfg.GetInfoInterval()),
		aggregator.WithMetrics(fleetMetrics),
	)

	router := api.NewServer(mgr, logBuffer,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(serverRequestTimeout),
			api.LoggingMiddleware,
		),
		api.WithMetricsHandler(telemetryProvider.Handler()),
	)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return agg.Start(groupCtx)
	})

	group.Go(func() error {
		slog.Info("Control API listening", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("control API server failed: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		slog.Info("Shutting down")

		stopped := mgr.StopAllAccounts()
		slog.Info("Stopped running accounts", "count", stopped)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return err
	}

	slog.Info("Shutdown complete")
	return nil
}

// importAccounts seeds the registry from the configured database.
func importAccounts(ctx context.Context, cfg *config.Config, mgr *manager.Manager) error {
	src, err := store.Open(ctx, cfg.Database.DSN, cfg.Database.GetTable())
	if err != nil {
		return err
	}
	defer src.Close()

	if err := src.EnsureSchema(ctx); err != nil {
		return err
	}

	accts, err := src.ListAccounts(ctx)
	if err != nil {
		return err
	}

	count, err := mgr.SyncAccounts(accts)
	if err != nil {
		return err
	}
	slog.Info("Imported accounts from database", "count", count)
	return nil
}
