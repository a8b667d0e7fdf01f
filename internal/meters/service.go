package meters

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/internal/audit"
	"github.com/forecourtlabs/forecourt-backend/internal/permissions"
	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
)

// auditRecorder queues audit events without blocking the caller.
type auditRecorder interface {
	Record(ctx context.Context, input audit.Input)
}

// CreateInput registers a new metering device.
type CreateInput struct {
	StationID      uuid.UUID
	PumpLabel      string
	ProductID      uuid.UUID
	InitialReading decimal.Decimal
}

// EditInput is a supervised reading correction.
type EditInput struct {
	DeviceID uuid.UUID
	ActorID  uuid.UUID
	Value    decimal.Decimal
}

// AssignInput attaches a device to a shift and optionally an attendant.
type AssignInput struct {
	DeviceID uuid.UUID
	ShiftID  uuid.UUID
	StaffID  *uuid.UUID
	ActorID  uuid.UUID
}

// Service owns the meter reading lifecycle. Readings are cumulative and only
// move forward; corrections are capability-gated and audited.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.MeteringDevice, error)
	Get(ctx context.Context, id uuid.UUID) (*models.MeteringDevice, error)
	ListByStation(ctx context.Context, stationID uuid.UUID) ([]models.MeteringDevice, error)
	ListByShift(ctx context.Context, shiftID uuid.UUID) ([]models.MeteringDevice, error)

	// Assign is the operator-facing assignment, gated and audited.
	Assign(ctx context.Context, input AssignInput) (*models.MeteringDevice, error)
	// AttachToShiftTx rolls the device into a new shift window: the last
	// closing becomes the new opening. Used by shift open.
	AttachToShiftTx(ctx context.Context, tx *gorm.DB, deviceID, shiftID uuid.UUID, staffID *uuid.UUID) (*models.MeteringDevice, error)
	// DetachFromShiftTx clears the shift binding at close.
	DetachFromShiftTx(ctx context.Context, tx *gorm.DB, deviceID uuid.UUID) error
	// AdvanceForSaleTx moves the closing reading by the sold quantity.
	AdvanceForSaleTx(ctx context.Context, tx *gorm.DB, deviceID uuid.UUID, quantity decimal.Decimal) (*models.MeteringDevice, error)

	SetOpeningReading(ctx context.Context, input EditInput) (*models.MeteringDevice, error)
	SetClosingReading(ctx context.Context, input EditInput) (*models.MeteringDevice, error)
}

type service struct {
	repo    Repository
	gate    permissions.Service
	auditor auditRecorder
}

// NewService wires the meter service. The auditor may be nil.
func NewService(repo Repository, gate permissions.Service, auditor auditRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("meter repository required")
	}
	if gate == nil {
		return nil, fmt.Errorf("permission gate required")
	}
	return &service{repo: repo, gate: gate, auditor: auditor}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.MeteringDevice, error) {
	if input.StationID == uuid.Nil {
		return nil, fmt.Errorf("station id is required")
	}
	if input.PumpLabel == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pump label is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, fmt.Errorf("product id is required")
	}
	if input.InitialReading.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial reading cannot be negative")
	}

	device := &models.MeteringDevice{
		ID:             uuid.Must(uuid.NewV7()),
		StationID:      input.StationID,
		PumpLabel:      input.PumpLabel,
		ProductID:      input.ProductID,
		OpeningReading: input.InitialReading,
		ClosingReading: input.InitialReading,
	}
	if err := s.repo.Create(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.MeteringDevice, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("device id is required")
	}
	return s.repo.Get(ctx, id)
}

func (s *service) ListByStation(ctx context.Context, stationID uuid.UUID) ([]models.MeteringDevice, error) {
	if stationID == uuid.Nil {
		return nil, fmt.Errorf("station id is required")
	}
	return s.repo.ListByStation(ctx, stationID)
}

func (s *service) ListByShift(ctx context.Context, shiftID uuid.UUID) ([]models.MeteringDevice, error) {
	if shiftID == uuid.Nil {
		return nil, fmt.Errorf("shift id is required")
	}
	return s.repo.ListByShift(ctx, shiftID)
}

func (s *service) Assign(ctx context.Context, input AssignInput) (*models.MeteringDevice, error) {
	if input.ActorID == uuid.Nil {
		return nil, fmt.Errorf("actor id is required")
	}
	if err := s.gate.Require(ctx, input.ActorID, enums.CapManageShifts); err != nil {
		return nil, err
	}

	device, err := s.AttachToShiftTx(ctx, nil, input.DeviceID, input.ShiftID, input.StaffID)
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.Record(ctx, audit.Input{
			StationID: device.StationID,
			ActorID:   input.ActorID,
			Action:    enums.AuditDeviceAssigned,
			RecordRef: "device:" + device.ID.String(),
			Payload: map[string]any{
				"shift_id": input.ShiftID.String(),
				"staff_id": input.StaffID,
			},
		})
	}
	return device, nil
}

func (s *service) AttachToShiftTx(ctx context.Context, tx *gorm.DB, deviceID, shiftID uuid.UUID, staffID *uuid.UUID) (*models.MeteringDevice, error) {
	if deviceID == uuid.Nil {
		return nil, fmt.Errorf("device id is required")
	}
	if shiftID == uuid.Nil {
		return nil, fmt.Errorf("shift id is required")
	}

	repo := s.repo.WithTx(tx)
	device, err := repo.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	// Carry forward: the previous window's closing becomes the new opening.
	device.OpeningReading = device.ClosingReading
	device.ShiftID = &shiftID
	device.AssignedStaffID = staffID
	if err := repo.Save(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *service) DetachFromShiftTx(ctx context.Context, tx *gorm.DB, deviceID uuid.UUID) error {
	if deviceID == uuid.Nil {
		return fmt.Errorf("device id is required")
	}

	repo := s.repo.WithTx(tx)
	device, err := repo.Get(ctx, deviceID)
	if err != nil {
		return err
	}
	device.ShiftID = nil
	device.AssignedStaffID = nil
	return repo.Save(ctx, device)
}

func (s *service) AdvanceForSaleTx(ctx context.Context, tx *gorm.DB, deviceID uuid.UUID, quantity decimal.Decimal) (*models.MeteringDevice, error) {
	if deviceID == uuid.Nil {
		return nil, fmt.Errorf("device id is required")
	}
	if !quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	repo := s.repo.WithTx(tx)
	device, err := repo.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if device.ShiftID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device is not attached to a shift")
	}

	device.ClosingReading = device.ClosingReading.Add(quantity)
	if err := repo.Save(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *service) SetOpeningReading(ctx context.Context, input EditInput) (*models.MeteringDevice, error) {
	device, err := s.editReading(ctx, input, func(device *models.MeteringDevice) error {
		if input.Value.GreaterThan(device.ClosingReading) {
			return pkgerrors.New(pkgerrors.CodeMeterRegression, "opening reading cannot exceed closing reading")
		}
		device.OpeningReading = input.Value
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordEdit(ctx, device, input, enums.AuditOpeningReadingSet)
	return device, nil
}

func (s *service) SetClosingReading(ctx context.Context, input EditInput) (*models.MeteringDevice, error) {
	device, err := s.editReading(ctx, input, func(device *models.MeteringDevice) error {
		if input.Value.LessThan(device.OpeningReading) {
			return pkgerrors.New(pkgerrors.CodeMeterRegression, "closing reading cannot fall below opening reading")
		}
		device.ClosingReading = input.Value
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordEdit(ctx, device, input, enums.AuditClosingReadingSet)
	return device, nil
}

func (s *service) editReading(ctx context.Context, input EditInput, apply func(*models.MeteringDevice) error) (*models.MeteringDevice, error) {
	if input.DeviceID == uuid.Nil {
		return nil, fmt.Errorf("device id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, fmt.Errorf("actor id is required")
	}
	if input.Value.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reading cannot be negative")
	}
	if err := s.gate.Require(ctx, input.ActorID, enums.CapEditReadings); err != nil {
		return nil, err
	}

	device, err := s.repo.Get(ctx, input.DeviceID)
	if err != nil {
		return nil, err
	}
	// Closing a shift detaches its devices, so a nil shift binding means the
	// window is sealed. Edits then would rewrite the carry-forward baseline.
	if device.ShiftID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeShiftEditLocked, "device readings can only be edited during an open shift")
	}
	if err := apply(device); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *service) recordEdit(ctx context.Context, device *models.MeteringDevice, input EditInput, action enums.AuditAction) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, audit.Input{
		StationID: device.StationID,
		ActorID:   input.ActorID,
		Action:    action,
		RecordRef: "device:" + device.ID.String(),
		Payload:   map[string]string{"value": input.Value.String()},
	})
}
