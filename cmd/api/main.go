package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forecourtlabs/forecourt-backend/api/routes"
	"github.com/forecourtlabs/forecourt-backend/internal/audit"
	"github.com/forecourtlabs/forecourt-backend/internal/auth"
	"github.com/forecourtlabs/forecourt-backend/internal/customers"
	"github.com/forecourtlabs/forecourt-backend/internal/inventory"
	"github.com/forecourtlabs/forecourt-backend/internal/ledger"
	"github.com/forecourtlabs/forecourt-backend/internal/meters"
	"github.com/forecourtlabs/forecourt-backend/internal/periodlock"
	"github.com/forecourtlabs/forecourt-backend/internal/permissions"
	"github.com/forecourtlabs/forecourt-backend/internal/sales"
	"github.com/forecourtlabs/forecourt-backend/internal/shifts"
	"github.com/forecourtlabs/forecourt-backend/pkg/config"
	"github.com/forecourtlabs/forecourt-backend/pkg/db"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
	"github.com/forecourtlabs/forecourt-backend/pkg/metrics"
	"github.com/forecourtlabs/forecourt-backend/pkg/migrate"
	"github.com/forecourtlabs/forecourt-backend/pkg/outbox"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	stationID, err := uuid.Parse(cfg.App.StationID)
	if err != nil {
		logg.Error(context.Background(), "station id must be a valid uuid", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	conn := dbClient.DB()

	registry := prometheus.NewRegistry()

	auditService, err := audit.NewService(audit.NewRepository(conn), dbClient)
	requireService(ctx, logg, "audit", err)

	sink, err := audit.NewSink(auditService, stationID, cfg.Audit.QueueSize, logg, metrics.NewAuditMetrics(registry))
	requireService(ctx, logg, "audit sink", err)
	go sink.Run(ctx)

	gate, err := permissions.NewService(permissions.NewRepository(conn), sink)
	requireService(ctx, logg, "permissions", err)

	ledgerService, err := ledger.NewService(ledger.NewRepository(conn), dbClient)
	requireService(ctx, logg, "ledger", err)
	if err := ledgerService.EnsureCoreAccounts(ctx, stationID); err != nil {
		logg.Error(ctx, "failed to seed core accounts", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(conn)
	dlqRepo := outbox.NewDLQRepository(conn)
	outboxService, err := outbox.NewService(outboxRepo, dlqRepo, dbClient, logg, outbox.Options{
		MaxAttempts: cfg.Sync.MaxAttempts,
		BaseBackoff: cfg.Sync.BaseBackoff,
		MaxBackoff:  cfg.Sync.MaxBackoff,
	})
	requireService(ctx, logg, "outbox", err)

	meterService, err := meters.NewService(meters.NewRepository(conn), gate, sink)
	requireService(ctx, logg, "meters", err)

	inventoryService, err := inventory.NewService(inventory.NewRepository(conn))
	requireService(ctx, logg, "inventory", err)

	customerService, err := customers.NewService(customers.NewRepository(conn))
	requireService(ctx, logg, "customers", err)

	periodLockService, err := periodlock.NewService(periodlock.NewRepository(conn))
	requireService(ctx, logg, "period lock", err)

	meterTolerance, err := cfg.Reconciliation.MeterTolerance()
	requireService(ctx, logg, "meter tolerance", err)
	cashTolerance, err := cfg.Reconciliation.CashTolerance()
	requireService(ctx, logg, "cash tolerance", err)

	shiftService, err := shifts.NewService(
		shifts.NewRepository(conn), meterService, gate, outboxService, sink, dbClient,
		shifts.Options{MeterTolerance: meterTolerance, CashTolerance: cashTolerance},
	)
	requireService(ctx, logg, "shifts", err)

	saleService, err := sales.NewService(
		sales.NewRepository(conn), meterService, inventoryService, ledgerService,
		customerService, shiftService, periodLockService, gate, outboxService, sink, dbClient,
	)
	requireService(ctx, logg, "sales", err)

	authService, err := auth.NewService(auth.NewRepository(conn), cfg.JWT)
	requireService(ctx, logg, "auth", err)

	addr := ":" + cfg.App.Port
	bootCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"station": stationID.String(),
	})
	logg.Info(bootCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, dbClient,
			authService, gate, auditService,
			shiftService, saleService, meterService,
			customerService, inventoryService, periodLockService,
			outboxService, outboxRepo, dlqRepo,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(bootCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(bootCtx, "api server shutdown failed", err)
		}
		sink.Wait()
		logg.Info(bootCtx, "api server stopped")
	}
}

func requireService(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err != nil {
		logg.Error(ctx, "failed to wire "+name+" service", err)
		os.Exit(1)
	}
}
