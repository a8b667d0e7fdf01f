package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/internal/audit"
	"github.com/forecourtlabs/forecourt-backend/internal/inventory"
	"github.com/forecourtlabs/forecourt-backend/internal/ledger"
	"github.com/forecourtlabs/forecourt-backend/internal/permissions"
	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/outbox"
)

// Narrow views of the collaborating services. The coordinator only needs
// the transactional entry points plus the lookups for its precondition
// checks.
type meterService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.MeteringDevice, error)
	AdvanceForSaleTx(ctx context.Context, tx *gorm.DB, deviceID uuid.UUID, quantity decimal.Decimal) (*models.MeteringDevice, error)
}

type stockService interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	GetLevel(ctx context.Context, productID uuid.UUID) (*models.StockLevel, error)
	DeductForSaleTx(ctx context.Context, tx *gorm.DB, input inventory.MovementInput) (*models.StockLevel, error)
}

type ledgerService interface {
	PostTx(ctx context.Context, tx *gorm.DB, input ledger.PostInput) (*models.JournalEntry, error)
}

type customerService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	ApplyCreditSaleTx(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, amount decimal.Decimal) (*models.Customer, error)
}

type shiftService interface {
	GetActive(ctx context.Context, stationID uuid.UUID) (*models.Shift, error)
	ApplySaleTotalsTx(ctx context.Context, tx *gorm.DB, shiftID uuid.UUID, amount, quantity decimal.Decimal, method enums.PaymentMethod) error
}

type periodGuard interface {
	EnsureOpen(ctx context.Context, stationID uuid.UUID, date time.Time) error
}

type enqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, m outbox.Mutation) error
}

type auditRecorder interface {
	Record(ctx context.Context, input audit.Input)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RecordSaleInput captures one dispense at the till.
type RecordSaleInput struct {
	StationID     uuid.UUID
	ActorID       uuid.UUID
	DeviceID      uuid.UUID
	CustomerID    *uuid.UUID
	Quantity      decimal.Decimal
	PaymentMethod enums.PaymentMethod
	// SaleDate defaults to now. Backdated entries still pass through the
	// period lock check.
	SaleDate time.Time
}

// Service coordinates the write side of a sale: one transaction covering the
// sale row, stock, meter, journal entry, customer dues and shift totals.
// Either every record lands or none do.
type Service interface {
	RecordSale(ctx context.Context, input RecordSaleInput) (*models.Sale, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	ListByShift(ctx context.Context, shiftID uuid.UUID, limit int) ([]models.Sale, error)
}

type service struct {
	repo      Repository
	meters    meterService
	stock     stockService
	ledger    ledgerService
	customers customerService
	shifts    shiftService
	periods   periodGuard
	gate      permissions.Service
	outbox    enqueuer
	auditor   auditRecorder
	db        txRunner
}

// NewService wires the sale coordinator. The auditor may be nil.
func NewService(
	repo Repository,
	meters meterService,
	stock stockService,
	ledgerSvc ledgerService,
	customers customerService,
	shifts shiftService,
	periods periodGuard,
	gate permissions.Service,
	ob enqueuer,
	auditor auditRecorder,
	db txRunner,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sale repository required")
	}
	if meters == nil {
		return nil, fmt.Errorf("meter service required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer service required")
	}
	if shifts == nil {
		return nil, fmt.Errorf("shift service required")
	}
	if periods == nil {
		return nil, fmt.Errorf("period lock service required")
	}
	if gate == nil {
		return nil, fmt.Errorf("permission gate required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox required")
	}
	if db == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:      repo,
		meters:    meters,
		stock:     stock,
		ledger:    ledgerSvc,
		customers: customers,
		shifts:    shifts,
		periods:   periods,
		gate:      gate,
		outbox:    ob,
		auditor:   auditor,
		db:        db,
	}, nil
}

func (s *service) RecordSale(ctx context.Context, input RecordSaleInput) (*models.Sale, error) {
	if err := validateRecordSale(input); err != nil {
		return nil, err
	}
	if err := s.gate.Require(ctx, input.ActorID, enums.CapRecordSale); err != nil {
		return nil, err
	}

	saleDate := input.SaleDate
	if saleDate.IsZero() {
		saleDate = time.Now().UTC()
	}
	if err := s.periods.EnsureOpen(ctx, input.StationID, saleDate); err != nil {
		return nil, err
	}

	shift, err := s.shifts.GetActive(ctx, input.StationID)
	if err != nil {
		return nil, err
	}

	device, err := s.meters.Get(ctx, input.DeviceID)
	if err != nil {
		return nil, err
	}
	if device.ShiftID == nil || *device.ShiftID != shift.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device is not attached to the open shift").
			WithDetails(map[string]string{"device_id": device.ID.String()})
	}

	product, err := s.stock.GetProduct(ctx, device.ProductID)
	if err != nil {
		return nil, err
	}

	total := input.Quantity.Mul(product.UnitPrice).Round(2)
	tax := inclusiveTax(total, product.TaxRatePercent)

	// Read-only precondition checks happen before the transaction opens so a
	// doomed sale never acquires write locks. The transactional deduct and
	// credit apply re-check the same invariants under the lock.
	level, err := s.stock.GetLevel(ctx, device.ProductID)
	if err != nil {
		return nil, err
	}
	if level == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no stock level for product")
	}
	if level.AvailableQty.LessThan(input.Quantity) {
		return nil, pkgerrors.NewInsufficientStock(input.Quantity, level.AvailableQty)
	}

	if input.PaymentMethod.IsCredit() {
		customer, err := s.customers.Get(ctx, *input.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer.Blocked {
			return nil, pkgerrors.New(pkgerrors.CodeCustomerBlocked, "customer account is blocked")
		}
		if customer.CreditLimit != nil && customer.CurrentDues.Add(total).GreaterThan(*customer.CreditLimit) {
			return nil, pkgerrors.NewCreditLimitExceeded(customer.CurrentDues, total, *customer.CreditLimit)
		}
	}

	items, err := EncodeItems([]SaleItem{{
		ProductID: product.ID,
		Name:      product.Name,
		Quantity:  input.Quantity,
		UnitPrice: product.UnitPrice,
		LineTotal: total,
	}})
	if err != nil {
		return nil, err
	}

	status := enums.SaleStatusPaid
	if input.PaymentMethod.IsCredit() {
		status = enums.SaleStatusUnpaid
	}

	sale := &models.Sale{
		ID:            uuid.Must(uuid.NewV7()),
		StationID:     input.StationID,
		ShiftID:       shift.ID,
		DeviceID:      device.ID,
		StaffID:       input.ActorID,
		CustomerID:    input.CustomerID,
		Items:         items,
		Quantity:      input.Quantity,
		UnitPrice:     product.UnitPrice,
		TaxAmount:     tax,
		TotalAmount:   total,
		PaymentMethod: input.PaymentMethod,
		Status:        status,
		SaleDate:      saleDate,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, sale); err != nil {
			return err
		}

		level, err := s.stock.DeductForSaleTx(ctx, tx, inventory.MovementInput{
			StationID: input.StationID,
			ProductID: product.ID,
			SaleID:    &sale.ID,
			Quantity:  input.Quantity,
		})
		if err != nil {
			return err
		}

		advanced, err := s.meters.AdvanceForSaleTx(ctx, tx, device.ID, input.Quantity)
		if err != nil {
			return err
		}

		entry, err := s.ledger.PostTx(ctx, tx, ledger.PostInput{
			StationID: input.StationID,
			SaleID:    &sale.ID,
			Memo:      "Sale " + sale.ID.String(),
			EntryDate: saleDate,
			Lines: []ledger.LineInput{
				{AccountCode: settlementAccount(input.PaymentMethod), Debit: total},
				{AccountCode: models.AccountCodeSales, Credit: total},
			},
		})
		if err != nil {
			return err
		}

		var customer *models.Customer
		if input.PaymentMethod.IsCredit() {
			customer, err = s.customers.ApplyCreditSaleTx(ctx, tx, *input.CustomerID, total)
			if err != nil {
				return err
			}
		}

		if err := s.shifts.ApplySaleTotalsTx(ctx, tx, shift.ID, total, input.Quantity, input.PaymentMethod); err != nil {
			return err
		}

		mutations := []outbox.Mutation{
			{
				StationID:  input.StationID,
				OpType:     enums.SyncOpCreate,
				Collection: enums.CollectionSales,
				DocumentID: sale.ID,
				Data:       sale,
				Priority:   outbox.PriorityFinancial,
			},
			{
				StationID:  input.StationID,
				OpType:     enums.SyncOpCreate,
				Collection: enums.CollectionJournals,
				DocumentID: entry.ID,
				Data:       entry,
				Priority:   outbox.PriorityFinancial,
			},
			{
				StationID:  input.StationID,
				OpType:     enums.SyncOpUpdate,
				Collection: enums.CollectionStock,
				DocumentID: level.ProductID,
				Data:       level,
				Priority:   outbox.PriorityInventory,
			},
			{
				StationID:  input.StationID,
				OpType:     enums.SyncOpUpdate,
				Collection: enums.CollectionDevices,
				DocumentID: advanced.ID,
				Data:       advanced,
				Priority:   outbox.PriorityDevice,
			},
		}
		if customer != nil {
			mutations = append(mutations, outbox.Mutation{
				StationID:  input.StationID,
				OpType:     enums.SyncOpUpdate,
				Collection: enums.CollectionCustomers,
				DocumentID: customer.ID,
				Data:       customer,
				Priority:   outbox.PriorityInventory,
			})
		}
		for _, m := range mutations {
			if err := s.outbox.Enqueue(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.Record(ctx, audit.Input{
			StationID: sale.StationID,
			ActorID:   input.ActorID,
			Action:    enums.AuditSaleCreated,
			RecordRef: "sale:" + sale.ID.String(),
			Payload: map[string]any{
				"device_id":      sale.DeviceID.String(),
				"quantity":       sale.Quantity,
				"total_amount":   sale.TotalAmount,
				"payment_method": sale.PaymentMethod,
			},
		})
	}
	return sale, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("sale id is required")
	}
	return s.repo.Get(ctx, id)
}

func (s *service) ListByShift(ctx context.Context, shiftID uuid.UUID, limit int) ([]models.Sale, error) {
	if shiftID == uuid.Nil {
		return nil, fmt.Errorf("shift id is required")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListByShift(ctx, shiftID, limit)
}

func validateRecordSale(input RecordSaleInput) error {
	if input.StationID == uuid.Nil {
		return fmt.Errorf("station id is required")
	}
	if input.ActorID == uuid.Nil {
		return fmt.Errorf("actor id is required")
	}
	if input.DeviceID == uuid.Nil {
		return fmt.Errorf("device id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if !input.Quantity.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.PaymentMethod.IsCredit() && input.CustomerID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit sales require a customer")
	}
	return nil
}

// inclusiveTax extracts the tax portion from a tax-inclusive total.
func inclusiveTax(total, ratePercent decimal.Decimal) decimal.Decimal {
	if !ratePercent.IsPositive() {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	return total.Mul(ratePercent).Div(ratePercent.Add(hundred)).Round(2)
}

// settlementAccount maps a payment method to the ledger account debited at
// the point of sale.
func settlementAccount(method enums.PaymentMethod) string {
	switch method {
	case enums.PaymentMethodCash:
		return models.AccountCodeCash
	case enums.PaymentMethodCredit:
		return models.AccountCodeReceivable
	default:
		return models.AccountCodeBank
	}
}
