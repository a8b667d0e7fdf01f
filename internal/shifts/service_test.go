package shifts

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/internal/audit"
	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/outbox"
)

type fakeRepository struct {
	shifts map[uuid.UUID]*models.Shift
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{shifts: map[uuid.UUID]*models.Shift{}}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Get(ctx context.Context, id uuid.UUID) (*models.Shift, error) {
	if shift, ok := f.shifts[id]; ok {
		copied := *shift
		return &copied, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeShiftNotFound, "shift not found")
}

func (f *fakeRepository) GetOpen(ctx context.Context, stationID uuid.UUID) (*models.Shift, error) {
	for _, shift := range f.shifts {
		if shift.StationID == stationID && shift.Status == enums.ShiftStatusOpen {
			copied := *shift
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) Create(ctx context.Context, shift *models.Shift) error {
	copied := *shift
	f.shifts[shift.ID] = &copied
	return nil
}

func (f *fakeRepository) Save(ctx context.Context, shift *models.Shift) error {
	return f.Create(ctx, shift)
}

func (f *fakeRepository) ListRecent(ctx context.Context, stationID uuid.UUID, limit int) ([]models.Shift, error) {
	var out []models.Shift
	for _, s := range f.shifts {
		if s.StationID == stationID {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeMeterService struct {
	devices map[uuid.UUID]*models.MeteringDevice
}

func newFakeMeterService() *fakeMeterService {
	return &fakeMeterService{devices: map[uuid.UUID]*models.MeteringDevice{}}
}

func (f *fakeMeterService) AttachToShiftTx(ctx context.Context, tx *gorm.DB, deviceID, shiftID uuid.UUID, staffID *uuid.UUID) (*models.MeteringDevice, error) {
	device, ok := f.devices[deviceID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "metering device not found")
	}
	device.OpeningReading = device.ClosingReading
	device.ShiftID = &shiftID
	device.AssignedStaffID = staffID
	return device, nil
}

func (f *fakeMeterService) DetachFromShiftTx(ctx context.Context, tx *gorm.DB, deviceID uuid.UUID) error {
	if device, ok := f.devices[deviceID]; ok {
		device.ShiftID = nil
		device.AssignedStaffID = nil
	}
	return nil
}

func (f *fakeMeterService) ListByShift(ctx context.Context, shiftID uuid.UUID) ([]models.MeteringDevice, error) {
	var out []models.MeteringDevice
	for _, d := range f.devices {
		if d.ShiftID != nil && *d.ShiftID == shiftID {
			out = append(out, *d)
		}
	}
	return out, nil
}

type fakeGate struct {
	denied  map[enums.Capability]bool
	pinFail bool
}

func (g *fakeGate) Require(ctx context.Context, actorID uuid.UUID, capability enums.Capability) error {
	if g.denied[capability] {
		return pkgerrors.NewPermissionDenied(string(capability))
	}
	return nil
}

func (g *fakeGate) Allowed(ctx context.Context, actorID uuid.UUID, capability enums.Capability) (bool, error) {
	return !g.denied[capability], nil
}

func (g *fakeGate) VerifySupervisorPIN(ctx context.Context, supervisorID uuid.UUID, pin string, capability enums.Capability) error {
	if err := g.Require(ctx, supervisorID, capability); err != nil {
		return err
	}
	if g.pinFail || pin == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "supervisor PIN does not match")
	}
	return nil
}

type fakeEnqueuer struct {
	mutations []outbox.Mutation
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, tx *gorm.DB, m outbox.Mutation) error {
	f.mutations = append(f.mutations, m)
	return nil
}

type capturingAuditor struct {
	inputs []audit.Input
}

func (c *capturingAuditor) Record(ctx context.Context, input audit.Input) {
	c.inputs = append(c.inputs, input)
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fixture struct {
	svc     Service
	repo    *fakeRepository
	meters  *fakeMeterService
	gate    *fakeGate
	outbox  *fakeEnqueuer
	auditor *capturingAuditor
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:    newFakeRepository(),
		meters:  newFakeMeterService(),
		gate:    &fakeGate{denied: map[enums.Capability]bool{}},
		outbox:  &fakeEnqueuer{},
		auditor: &capturingAuditor{},
	}
	svc, err := NewService(f.repo, f.meters, f.gate, f.outbox, f.auditor, fakeTxRunner{}, Options{
		MeterTolerance: decimal.RequireFromString("0.5"),
		CashTolerance:  decimal.RequireFromString("10.00"),
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) addDevice(reading string) *models.MeteringDevice {
	device := &models.MeteringDevice{
		ID:             uuid.New(),
		StationID:      uuid.New(),
		PumpLabel:      "P1",
		ProductID:      uuid.New(),
		OpeningReading: decimal.RequireFromString(reading),
		ClosingReading: decimal.RequireFromString(reading),
	}
	f.meters.devices[device.ID] = device
	return device
}

func TestService_OpenShift(t *testing.T) {
	f := newFixture(t)
	stationID := uuid.New()
	device := f.addDevice("1455.75")
	staffID := uuid.New()

	shift, err := f.svc.Open(context.Background(), OpenInput{
		StationID: stationID,
		Name:      "Morning",
		ActorID:   uuid.New(),
		StaffIDs:  []uuid.UUID{staffID},
		Devices:   []DeviceAssignment{{DeviceID: device.ID, StaffID: &staffID}},
	})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	if shift.Status != enums.ShiftStatusOpen {
		t.Fatalf("expected open status, got %s", shift.Status)
	}
	if device.ShiftID == nil || *device.ShiftID != shift.ID {
		t.Fatal("device should be attached to the new shift")
	}
	if len(f.outbox.mutations) != 1 || f.outbox.mutations[0].Collection != enums.CollectionShifts {
		t.Fatalf("expected one shift outbox mutation, got %+v", f.outbox.mutations)
	}
	if len(f.auditor.inputs) != 1 || f.auditor.inputs[0].Action != enums.AuditShiftOpen {
		t.Fatalf("expected SHIFT_OPEN audit event, got %+v", f.auditor.inputs)
	}
}

func TestService_OpenSecondShiftRejected(t *testing.T) {
	f := newFixture(t)
	stationID := uuid.New()
	actor := uuid.New()

	if _, err := f.svc.Open(context.Background(), OpenInput{
		StationID: stationID,
		ActorID:   actor,
		StaffIDs:  []uuid.UUID{uuid.New()},
	}); err != nil {
		t.Fatalf("first Open error: %v", err)
	}

	_, err := f.svc.Open(context.Background(), OpenInput{
		StationID: stationID,
		ActorID:   actor,
		StaffIDs:  []uuid.UUID{uuid.New()},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeShiftAlreadyOpen) {
		t.Fatalf("expected SHIFT_ALREADY_OPEN, got %v", err)
	}
}

func TestService_OpenOtherStationUnaffected(t *testing.T) {
	f := newFixture(t)
	actor := uuid.New()

	if _, err := f.svc.Open(context.Background(), OpenInput{
		StationID: uuid.New(),
		ActorID:   actor,
		StaffIDs:  []uuid.UUID{uuid.New()},
	}); err != nil {
		t.Fatalf("first Open error: %v", err)
	}
	if _, err := f.svc.Open(context.Background(), OpenInput{
		StationID: uuid.New(),
		ActorID:   actor,
		StaffIDs:  []uuid.UUID{uuid.New()},
	}); err != nil {
		t.Fatalf("open on another station should pass: %v", err)
	}
}

func openShiftForClose(t *testing.T, f *fixture, soldQty, cashTotal string) (*models.Shift, *models.MeteringDevice) {
	t.Helper()
	stationID := uuid.New()
	device := f.addDevice("1000.00")
	staffID := uuid.New()

	shift, err := f.svc.Open(context.Background(), OpenInput{
		StationID: stationID,
		ActorID:   uuid.New(),
		StaffIDs:  []uuid.UUID{staffID},
		Devices:   []DeviceAssignment{{DeviceID: device.ID, StaffID: &staffID}},
	})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	stored := f.repo.shifts[shift.ID]
	stored.TotalQuantity = decimal.RequireFromString(soldQty)
	stored.TotalAmount = decimal.RequireFromString(cashTotal)
	totals := PaymentTotals{enums.PaymentMethodCash: decimal.RequireFromString(cashTotal)}
	raw, _ := totals.Encode()
	stored.PaymentTotals = raw
	return stored, device
}

func TestService_CloseCleanShift(t *testing.T) {
	f := newFixture(t)
	shift, device := openShiftForClose(t, f, "50.00", "5000.00")
	device.ClosingReading = dec(t, "1050.00")

	declared := dec(t, "5000.00")
	result, err := f.svc.Close(context.Background(), CloseInput{
		ShiftID:      shift.ID,
		ActorID:      uuid.New(),
		DeclaredCash: &declared,
	})
	if err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if result.Shift.Status != enums.ShiftStatusClosed {
		t.Fatalf("expected closed status, got %s", result.Shift.Status)
	}
	if result.Shift.WasForced {
		t.Fatal("clean close should not be marked forced")
	}
	if !result.Reconciliation.QuantityVariance.IsZero() {
		t.Fatalf("expected zero variance, got %s", result.Reconciliation.QuantityVariance)
	}
	if device.ShiftID != nil {
		t.Fatal("device should be detached at close")
	}
	if len(result.Settlement) != 1 || !result.Settlement[0].Amount.Equal(dec(t, "5000.00")) {
		t.Fatalf("single staff should settle the full total: %+v", result.Settlement)
	}

	var settlement []map[string]any
	if err := json.Unmarshal(result.Shift.Settlement, &settlement); err != nil {
		t.Fatalf("settlement should be stored as JSON: %v", err)
	}
	if len(f.auditor.inputs) != 2 || f.auditor.inputs[1].Action != enums.AuditShiftClose {
		t.Fatalf("expected SHIFT_CLOSE audit event, got %+v", f.auditor.inputs)
	}
}

func TestService_CloseBlockedByMeterVariance(t *testing.T) {
	f := newFixture(t)
	shift, device := openShiftForClose(t, f, "50.00", "5000.00")
	// Meters moved 55 but only 50 was billed.
	device.ClosingReading = dec(t, "1055.00")

	_, err := f.svc.Close(context.Background(), CloseInput{
		ShiftID: shift.ID,
		ActorID: uuid.New(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeVariance) {
		t.Fatalf("expected RECONCILIATION_VARIANCE, got %v", err)
	}
	if f.repo.shifts[shift.ID].Status != enums.ShiftStatusOpen {
		t.Fatal("blocked close must leave the shift open")
	}
}

func TestService_CloseBlockedByCashMismatch(t *testing.T) {
	f := newFixture(t)
	shift, device := openShiftForClose(t, f, "50.00", "5000.00")
	device.ClosingReading = dec(t, "1050.00")

	declared := dec(t, "4900.00")
	_, err := f.svc.Close(context.Background(), CloseInput{
		ShiftID:      shift.ID,
		ActorID:      uuid.New(),
		DeclaredCash: &declared,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeCashMismatch) {
		t.Fatalf("expected CASH_DECLARATION_MISMATCH, got %v", err)
	}
}

func TestService_ForceCloseOverridesVariance(t *testing.T) {
	f := newFixture(t)
	shift, device := openShiftForClose(t, f, "50.00", "5000.00")
	device.ClosingReading = dec(t, "1075.00")

	result, err := f.svc.Close(context.Background(), CloseInput{
		ShiftID:       shift.ID,
		ActorID:       uuid.New(),
		Force:         true,
		SupervisorPIN: "4321",
	})
	if err != nil {
		t.Fatalf("forced Close error: %v", err)
	}
	if !result.Shift.WasForced {
		t.Fatal("forced close should be flagged")
	}
	if result.Shift.Variance == nil || !result.Shift.Variance.Equal(dec(t, "25.00")) {
		t.Fatalf("variance should be preserved on the shift, got %v", result.Shift.Variance)
	}
	if f.auditor.inputs[len(f.auditor.inputs)-1].Action != enums.AuditShiftForceClose {
		t.Fatal("expected SHIFT_FORCE_CLOSE audit event")
	}
}

func TestService_ForceCloseNeedsPIN(t *testing.T) {
	f := newFixture(t)
	shift, device := openShiftForClose(t, f, "50.00", "5000.00")
	device.ClosingReading = dec(t, "1075.00")

	_, err := f.svc.Close(context.Background(), CloseInput{
		ShiftID: shift.ID,
		ActorID: uuid.New(),
		Force:   true,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED without PIN, got %v", err)
	}
}

func TestService_ForceCloseNeedsCapability(t *testing.T) {
	f := newFixture(t)
	shift, _ := openShiftForClose(t, f, "50.00", "5000.00")
	f.gate.denied[enums.CapForceClose] = true

	_, err := f.svc.Close(context.Background(), CloseInput{
		ShiftID:       shift.ID,
		ActorID:       uuid.New(),
		Force:         true,
		SupervisorPIN: "4321",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodePermissionDenied) {
		t.Fatalf("expected PERMISSION_DENIED, got %v", err)
	}
}

func TestService_CloseTwiceRejected(t *testing.T) {
	f := newFixture(t)
	shift, device := openShiftForClose(t, f, "50.00", "5000.00")
	device.ClosingReading = dec(t, "1050.00")

	if _, err := f.svc.Close(context.Background(), CloseInput{ShiftID: shift.ID, ActorID: uuid.New()}); err != nil {
		t.Fatalf("first Close error: %v", err)
	}
	_, err := f.svc.Close(context.Background(), CloseInput{ShiftID: shift.ID, ActorID: uuid.New()})
	if !pkgerrors.HasCode(err, pkgerrors.CodeShiftClosed) {
		t.Fatalf("expected SHIFT_CLOSED, got %v", err)
	}
}

func TestService_ApplySaleTotals(t *testing.T) {
	f := newFixture(t)
	shift, _ := openShiftForClose(t, f, "0", "0")

	err := f.svc.ApplySaleTotalsTx(context.Background(), &gorm.DB{}, shift.ID, dec(t, "1180.00"), dec(t, "10.00"), enums.PaymentMethodCash)
	if err != nil {
		t.Fatalf("ApplySaleTotalsTx error: %v", err)
	}
	err = f.svc.ApplySaleTotalsTx(context.Background(), &gorm.DB{}, shift.ID, dec(t, "500.00"), dec(t, "4.00"), enums.PaymentMethodUPI)
	if err != nil {
		t.Fatalf("second ApplySaleTotalsTx error: %v", err)
	}

	stored := f.repo.shifts[shift.ID]
	if !stored.TotalAmount.Equal(dec(t, "1680.00")) || !stored.TotalQuantity.Equal(dec(t, "14.00")) {
		t.Fatalf("totals mismatch: %s / %s", stored.TotalAmount, stored.TotalQuantity)
	}
	totals, err := DecodePaymentTotals(stored.PaymentTotals)
	if err != nil {
		t.Fatalf("DecodePaymentTotals error: %v", err)
	}
	if !totals[enums.PaymentMethodCash].Equal(dec(t, "1180.00")) || !totals[enums.PaymentMethodUPI].Equal(dec(t, "500.00")) {
		t.Fatalf("payment totals mismatch: %+v", totals)
	}
}

func TestService_ApplySaleTotalsClosedShift(t *testing.T) {
	f := newFixture(t)
	shift, device := openShiftForClose(t, f, "0", "0")
	device.ClosingReading = device.OpeningReading

	if _, err := f.svc.Close(context.Background(), CloseInput{ShiftID: shift.ID, ActorID: uuid.New()}); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	err := f.svc.ApplySaleTotalsTx(context.Background(), &gorm.DB{}, shift.ID, dec(t, "100.00"), dec(t, "1.00"), enums.PaymentMethodCash)
	if !pkgerrors.HasCode(err, pkgerrors.CodeShiftEditLocked) {
		t.Fatalf("expected SHIFT_CLOSED_FOR_EDITING, got %v", err)
	}
}

func TestService_GetActive(t *testing.T) {
	f := newFixture(t)
	stationID := uuid.New()

	if _, err := f.svc.GetActive(context.Background(), stationID); !pkgerrors.HasCode(err, pkgerrors.CodeNoActiveShift) {
		t.Fatalf("expected NO_ACTIVE_SHIFT, got %v", err)
	}

	opened, err := f.svc.Open(context.Background(), OpenInput{
		StationID: stationID,
		ActorID:   uuid.New(),
		StaffIDs:  []uuid.UUID{uuid.New()},
	})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	active, err := f.svc.GetActive(context.Background(), stationID)
	if err != nil {
		t.Fatalf("GetActive error: %v", err)
	}
	if active.ID != opened.ID {
		t.Fatal("GetActive should return the opened shift")
	}
}
