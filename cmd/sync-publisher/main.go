package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forecourtlabs/forecourt-backend/pkg/config"
	"github.com/forecourtlabs/forecourt-backend/pkg/db"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
	"github.com/forecourtlabs/forecourt-backend/pkg/metrics"
	"github.com/forecourtlabs/forecourt-backend/pkg/migrate"
	"github.com/forecourtlabs/forecourt-backend/pkg/outbox"
	"github.com/forecourtlabs/forecourt-backend/pkg/synctransport"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sync-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if cfg.Sync.RemoteBaseURL == "" {
		logg.Error(context.Background(), "sync remote base url is not configured", errors.New("FORECOURT_SYNC_REMOTE_BASE_URL is required"))
		os.Exit(1)
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	repo := outbox.NewRepository(dbClient.DB())
	dlqRepo := outbox.NewDLQRepository(dbClient.DB())
	outboxService, err := outbox.NewService(repo, dlqRepo, dbClient, logg, outbox.Options{
		MaxAttempts: cfg.Sync.MaxAttempts,
		BaseBackoff: cfg.Sync.BaseBackoff,
		MaxBackoff:  cfg.Sync.MaxBackoff,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox service", err)
		os.Exit(1)
	}

	pusher, err := synctransport.NewClient(cfg.Sync.RemoteBaseURL, cfg.Sync.APIKey,
		synctransport.WithTimeout(cfg.Sync.PushTimeout))
	if err != nil {
		logg.Error(context.Background(), "failed to create sync client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	publisherMetrics := metrics.NewSyncPublisherMetrics(registry)

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Repository: repo,
		Outbox:     outboxService,
		Pusher:     pusher,
		Metrics:    publisherMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync publisher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "sync-publisher",
		"station_id":  cfg.App.StationID,
	})

	metricsServer := &http.Server{
		Addr:              ":" + cfg.Sync.MetricsPort,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logg.Info(ctx, "starting sync publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sync publisher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sync publisher shutting down gracefully")
}
