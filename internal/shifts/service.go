package shifts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/internal/audit"
	"github.com/forecourtlabs/forecourt-backend/internal/permissions"
	"github.com/forecourtlabs/forecourt-backend/internal/reconciliation"
	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/outbox"
)

// meterService is the slice of the meter service the registry needs.
type meterService interface {
	AttachToShiftTx(ctx context.Context, tx *gorm.DB, deviceID, shiftID uuid.UUID, staffID *uuid.UUID) (*models.MeteringDevice, error)
	DetachFromShiftTx(ctx context.Context, tx *gorm.DB, deviceID uuid.UUID) error
	ListByShift(ctx context.Context, shiftID uuid.UUID) ([]models.MeteringDevice, error)
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

// DeviceAssignment pairs a device with the attendant running it.
type DeviceAssignment struct {
	DeviceID uuid.UUID
	StaffID  *uuid.UUID
}

// OpenInput starts a new shift.
type OpenInput struct {
	StationID uuid.UUID
	Name      string
	ActorID   uuid.UUID
	StaffIDs  []uuid.UUID
	Devices   []DeviceAssignment
}

// CloseInput ends a shift. Force skips the variance gate but requires the
// force-close capability and a supervisor PIN.
type CloseInput struct {
	ShiftID       uuid.UUID
	ActorID       uuid.UUID
	DeclaredCash  *decimal.Decimal
	Force         bool
	SupervisorPIN string
}

// CloseResult bundles the closed shift with its reconciliation report.
type CloseResult struct {
	Shift          *models.Shift               `json:"shift"`
	Reconciliation *reconciliation.Report      `json:"reconciliation"`
	Settlement     []reconciliation.StaffShare `json:"settlement"`
}

// Options carries the station's reconciliation tolerances.
type Options struct {
	MeterTolerance decimal.Decimal
	CashTolerance  decimal.Decimal
}

// Service owns the shift lifecycle: exclusivity at open, reconciliation and
// settlement at close.
type Service interface {
	Open(ctx context.Context, input OpenInput) (*models.Shift, error)
	Close(ctx context.Context, input CloseInput) (*CloseResult, error)
	// Preview reconciles without closing, so the operator can see variances
	// before declaring cash.
	Preview(ctx context.Context, shiftID uuid.UUID, declaredCash *decimal.Decimal) (*reconciliation.Report, error)
	// GetActive fails with NO_ACTIVE_SHIFT when nothing is open.
	GetActive(ctx context.Context, stationID uuid.UUID) (*models.Shift, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Shift, error)
	ListRecent(ctx context.Context, stationID uuid.UUID, limit int) ([]models.Shift, error)
	// ApplySaleTotalsTx folds one sale into the open shift's running totals.
	ApplySaleTotalsTx(ctx context.Context, tx *gorm.DB, shiftID uuid.UUID, amount, quantity decimal.Decimal, method enums.PaymentMethod) error
}

type service struct {
	repo    Repository
	meters  meterService
	gate    permissions.Service
	outbox  enqueuer
	auditor auditRecorder
	db      txRunner
	opts    Options
}

// NewService wires the shift registry. The auditor may be nil.
func NewService(repo Repository, meters meterService, gate permissions.Service, ob enqueuer, auditor auditRecorder, db txRunner, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shift repository required")
	}
	if meters == nil {
		return nil, fmt.Errorf("meter service required")
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
	return &service{repo: repo, meters: meters, gate: gate, outbox: ob, auditor: auditor, db: db, opts: opts}, nil
}

func (s *service) Open(ctx context.Context, input OpenInput) (*models.Shift, error) {
	if input.StationID == uuid.Nil {
		return nil, fmt.Errorf("station id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, fmt.Errorf("actor id is required")
	}
	if len(input.StaffIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a shift needs at least one staff member")
	}
	if err := s.gate.Require(ctx, input.ActorID, enums.CapManageShifts); err != nil {
		return nil, err
	}

	name := input.Name
	if name == "" {
		name = "Shift " + time.Now().Format("2006-01-02 15:04")
	}

	shift := &models.Shift{
		ID:            uuid.Must(uuid.NewV7()),
		StationID:     input.StationID,
		Name:          name,
		Status:        enums.ShiftStatusOpen,
		StaffIDs:      input.StaffIDs,
		StartedAt:     time.Now().UTC(),
		TotalAmount:   decimal.Zero,
		TotalQuantity: decimal.Zero,
		PaymentTotals: json.RawMessage(`{}`),
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		open, err := repo.GetOpen(ctx, input.StationID)
		if err != nil {
			return err
		}
		if open != nil {
			return pkgerrors.New(pkgerrors.CodeShiftAlreadyOpen, "a shift is already open for this station").
				WithDetails(map[string]string{"open_shift_id": open.ID.String()})
		}

		if err := repo.Create(ctx, shift); err != nil {
			return err
		}

		// Attaching rolls each device's window forward so the new shift
		// starts from the pump's current reading.
		for _, assignment := range input.Devices {
			if _, err := s.meters.AttachToShiftTx(ctx, tx, assignment.DeviceID, shift.ID, assignment.StaffID); err != nil {
				return err
			}
		}

		return s.outbox.Enqueue(ctx, tx, outbox.Mutation{
			StationID:  shift.StationID,
			OpType:     enums.SyncOpCreate,
			Collection: enums.CollectionShifts,
			DocumentID: shift.ID,
			Data:       shift,
			Priority:   outbox.PriorityShift,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.Record(ctx, audit.Input{
			StationID: shift.StationID,
			ActorID:   input.ActorID,
			Action:    enums.AuditShiftOpen,
			RecordRef: "shift:" + shift.ID.String(),
			Payload:   map[string]any{"name": shift.Name, "staff_ids": shift.StaffIDs},
		})
	}
	return shift, nil
}

func (s *service) Close(ctx context.Context, input CloseInput) (*CloseResult, error) {
	if input.ShiftID == uuid.Nil {
		return nil, fmt.Errorf("shift id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, fmt.Errorf("actor id is required")
	}
	if err := s.gate.Require(ctx, input.ActorID, enums.CapManageShifts); err != nil {
		return nil, err
	}
	if input.Force {
		if err := s.gate.VerifySupervisorPIN(ctx, input.ActorID, input.SupervisorPIN, enums.CapForceClose); err != nil {
			return nil, err
		}
	}

	shift, err := s.repo.Get(ctx, input.ShiftID)
	if err != nil {
		return nil, err
	}
	if shift.Status != enums.ShiftStatusOpen {
		return nil, pkgerrors.New(pkgerrors.CodeShiftClosed, "shift is already closed")
	}

	report, devices, err := s.reconcile(ctx, shift, input.DeclaredCash)
	if err != nil {
		return nil, err
	}

	if !input.Force {
		if !report.MeterWithinLimit {
			return nil, pkgerrors.NewReconciliationVariance(report.ExpectedQuantity, report.SoldQuantity)
		}
		if !report.CashWithinLimit {
			return nil, pkgerrors.NewCashDeclarationMismatch(*report.DeclaredCash, report.ExpectedCash)
		}
	}

	settlement, err := reconciliation.SettlementSplit(shift.TotalAmount, shift.StaffIDs)
	if err != nil {
		return nil, err
	}
	settlementRaw, err := json.Marshal(settlement)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	variance := report.QuantityVariance
	shift.Status = enums.ShiftStatusClosed
	shift.EndedAt = &now
	shift.ClosedBy = &input.ActorID
	shift.DeclaredCash = input.DeclaredCash
	shift.Variance = &variance
	shift.WasForced = input.Force
	shift.Settlement = settlementRaw

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, shift); err != nil {
			return err
		}
		for _, device := range devices {
			if err := s.meters.DetachFromShiftTx(ctx, tx, device.ID); err != nil {
				return err
			}
		}
		return s.outbox.Enqueue(ctx, tx, outbox.Mutation{
			StationID:  shift.StationID,
			OpType:     enums.SyncOpUpdate,
			Collection: enums.CollectionShifts,
			DocumentID: shift.ID,
			Data:       shift,
			Priority:   outbox.PriorityShift,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		action := enums.AuditShiftClose
		if input.Force {
			action = enums.AuditShiftForceClose
		}
		s.auditor.Record(ctx, audit.Input{
			StationID: shift.StationID,
			ActorID:   input.ActorID,
			Action:    action,
			RecordRef: "shift:" + shift.ID.String(),
			Payload:   report,
		})
	}

	return &CloseResult{Shift: shift, Reconciliation: report, Settlement: settlement}, nil
}

func (s *service) Preview(ctx context.Context, shiftID uuid.UUID, declaredCash *decimal.Decimal) (*reconciliation.Report, error) {
	if shiftID == uuid.Nil {
		return nil, fmt.Errorf("shift id is required")
	}
	shift, err := s.repo.Get(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	report, _, err := s.reconcile(ctx, shift, declaredCash)
	return report, err
}

func (s *service) reconcile(ctx context.Context, shift *models.Shift, declaredCash *decimal.Decimal) (*reconciliation.Report, []models.MeteringDevice, error) {
	devices, err := s.meters.ListByShift(ctx, shift.ID)
	if err != nil {
		return nil, nil, err
	}

	windows := make([]reconciliation.MeterWindow, 0, len(devices))
	for _, device := range devices {
		windows = append(windows, reconciliation.MeterWindow{
			DeviceID: device.ID,
			Opening:  device.OpeningReading,
			Closing:  device.ClosingReading,
		})
	}

	totals, err := DecodePaymentTotals(shift.PaymentTotals)
	if err != nil {
		return nil, nil, fmt.Errorf("decode payment totals: %w", err)
	}

	report, err := reconciliation.Compute(reconciliation.Input{
		Meters:         windows,
		SoldQuantity:   shift.TotalQuantity,
		PaymentTotals:  totals,
		DeclaredCash:   declaredCash,
		MeterTolerance: s.opts.MeterTolerance,
		CashTolerance:  s.opts.CashTolerance,
	})
	if err != nil {
		return nil, nil, err
	}
	return report, devices, nil
}

func (s *service) GetActive(ctx context.Context, stationID uuid.UUID) (*models.Shift, error) {
	if stationID == uuid.Nil {
		return nil, fmt.Errorf("station id is required")
	}
	shift, err := s.repo.GetOpen(ctx, stationID)
	if err != nil {
		return nil, err
	}
	if shift == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNoActiveShift, "no shift is open for this station")
	}
	return shift, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Shift, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("shift id is required")
	}
	return s.repo.Get(ctx, id)
}

func (s *service) ListRecent(ctx context.Context, stationID uuid.UUID, limit int) ([]models.Shift, error) {
	if stationID == uuid.Nil {
		return nil, fmt.Errorf("station id is required")
	}
	if limit <= 0 || limit > 200 {
		limit = 30
	}
	return s.repo.ListRecent(ctx, stationID, limit)
}

func (s *service) ApplySaleTotalsTx(ctx context.Context, tx *gorm.DB, shiftID uuid.UUID, amount, quantity decimal.Decimal, method enums.PaymentMethod) error {
	repo := s.repo.WithTx(tx)
	shift, err := repo.Get(ctx, shiftID)
	if err != nil {
		return err
	}
	if shift.Status != enums.ShiftStatusOpen {
		return pkgerrors.New(pkgerrors.CodeShiftEditLocked, "shift is closed for editing")
	}

	totals, err := DecodePaymentTotals(shift.PaymentTotals)
	if err != nil {
		return fmt.Errorf("decode payment totals: %w", err)
	}
	raw, err := totals.Add(method, amount).Encode()
	if err != nil {
		return err
	}

	shift.TotalAmount = shift.TotalAmount.Add(amount)
	shift.TotalQuantity = shift.TotalQuantity.Add(quantity)
	shift.PaymentTotals = raw
	return repo.Save(ctx, shift)
}
