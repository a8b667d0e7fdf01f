package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forecourtlabs/forecourt-backend/api/controllers"
	"github.com/forecourtlabs/forecourt-backend/api/middleware"
	"github.com/forecourtlabs/forecourt-backend/internal/audit"
	"github.com/forecourtlabs/forecourt-backend/internal/auth"
	"github.com/forecourtlabs/forecourt-backend/internal/customers"
	"github.com/forecourtlabs/forecourt-backend/internal/inventory"
	"github.com/forecourtlabs/forecourt-backend/internal/meters"
	"github.com/forecourtlabs/forecourt-backend/internal/periodlock"
	"github.com/forecourtlabs/forecourt-backend/internal/permissions"
	"github.com/forecourtlabs/forecourt-backend/internal/sales"
	"github.com/forecourtlabs/forecourt-backend/internal/shifts"
	"github.com/forecourtlabs/forecourt-backend/pkg/config"
	"github.com/forecourtlabs/forecourt-backend/pkg/db"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
	"github.com/forecourtlabs/forecourt-backend/pkg/outbox"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	authService auth.Service,
	gate permissions.Service,
	auditService audit.Service,
	shiftService shifts.Service,
	saleService sales.Service,
	meterService meters.Service,
	customerService customers.Service,
	inventoryService inventory.Service,
	periodLockService periodlock.Service,
	outboxService *outbox.Service,
	outboxRepo *outbox.Repository,
	dlqRepo *outbox.DLQRepository,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbClient))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(authService, logg))
		r.Get("/roster", controllers.AuthRoster(authService, cfg, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/shifts", func(r chi.Router) {
			r.Post("/", controllers.ShiftOpen(shiftService, logg))
			r.Get("/", controllers.ShiftList(shiftService, logg))
			r.Get("/active", controllers.ShiftActive(shiftService, logg))
			r.Get("/{shiftId}", controllers.ShiftDetail(shiftService, logg))
			r.Post("/{shiftId}/close", controllers.ShiftClose(shiftService, logg))
			r.Get("/{shiftId}/reconciliation", controllers.ShiftReconciliationPreview(shiftService, logg))
			r.Get("/{shiftId}/sales", controllers.SalesByShift(saleService, logg))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Post("/", controllers.SaleRecord(saleService, logg))
			r.Get("/{saleId}", controllers.SaleDetail(saleService, logg))
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", controllers.DeviceList(meterService, logg))
			r.Get("/{deviceId}", controllers.DeviceDetail(meterService, logg))
			r.Post("/{deviceId}/assign", controllers.DeviceAssign(meterService, logg))
			r.Put("/{deviceId}/opening-reading", controllers.DeviceSetOpeningReading(meterService, logg))
			r.Put("/{deviceId}/closing-reading", controllers.DeviceSetClosingReading(meterService, logg))

			r.With(middleware.RequireRole(logg, enums.RoleOwner, enums.RoleManager)).
				Post("/", controllers.DeviceCreate(meterService, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", controllers.CustomerCreate(customerService, outboxService, dbClient, logg))
			r.Get("/", controllers.CustomerList(customerService, logg))
			r.Get("/{customerId}", controllers.CustomerDetail(customerService, logg))
			r.Post("/{customerId}/payments", controllers.CustomerRecordPayment(customerService, outboxService, dbClient, logg))
		})

		r.Route("/stock", func(r chi.Router) {
			r.Get("/{productId}", controllers.StockLevel(inventoryService, logg))
			r.Get("/{productId}/movements", controllers.StockMovements(inventoryService, logg))

			r.With(middleware.RequireRole(logg, enums.RoleOwner, enums.RoleManager)).
				Post("/receive", controllers.StockReceive(inventoryService, outboxService, dbClient, logg))
		})

		r.Route("/period-lock", func(r chi.Router) {
			r.Get("/", controllers.PeriodLockGet(periodLockService, logg))
			r.With(middleware.RequireRole(logg, enums.RoleOwner, enums.RoleManager)).
				Put("/", controllers.PeriodLockSet(periodLockService, gate, auditService, logg))
		})

		r.Route("/audit", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleOwner, enums.RoleManager))
			r.Get("/", controllers.AuditList(auditService, gate, logg))
			r.Get("/verify", controllers.AuditVerify(auditService, gate, logg))
		})

		r.Route("/sync", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleOwner, enums.RoleManager))
			r.Get("/status", controllers.SyncStatus(outboxRepo, logg))
			r.Get("/dead-letters", controllers.SyncDeadLetters(dlqRepo, logg))
		})
	})

	return r
}
