package permissions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
)

type fakeRepository struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

type recordedDenial struct {
	actorID    uuid.UUID
	capability enums.Capability
}

type fakeRecorder struct {
	denials []recordedDenial
}

func (f *fakeRecorder) PermissionDenied(ctx context.Context, actorID uuid.UUID, capability enums.Capability) {
	f.denials = append(f.denials, recordedDenial{actorID: actorID, capability: capability})
}

func newTestService(t *testing.T, users ...*models.User) (Service, *fakeRecorder) {
	t.Helper()
	repo := &fakeRepository{users: map[uuid.UUID]*models.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	recorder := &fakeRecorder{}
	svc, err := NewService(repo, recorder)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc, recorder
}

func TestService_RoleDefaults(t *testing.T) {
	owner := &models.User{ID: uuid.New(), Role: enums.RoleOwner}
	attendant := &models.User{ID: uuid.New(), Role: enums.RoleAttendant}
	svc, _ := newTestService(t, owner, attendant)

	allowed, err := svc.Allowed(context.Background(), owner.ID, enums.CapSetPeriodLock)
	if err != nil {
		t.Fatalf("Allowed error: %v", err)
	}
	if !allowed {
		t.Fatal("owner should hold can_set_period_lock by default")
	}

	allowed, err = svc.Allowed(context.Background(), attendant.ID, enums.CapForceClose)
	if err != nil {
		t.Fatalf("Allowed error: %v", err)
	}
	if allowed {
		t.Fatal("attendant should not hold can_force_close by default")
	}
}

func TestService_GrantExtendsRole(t *testing.T) {
	attendant := &models.User{
		ID:     uuid.New(),
		Role:   enums.RoleAttendant,
		Grants: models.CapabilityList{enums.CapEditReadings},
	}
	svc, _ := newTestService(t, attendant)

	allowed, err := svc.Allowed(context.Background(), attendant.ID, enums.CapEditReadings)
	if err != nil {
		t.Fatalf("Allowed error: %v", err)
	}
	if !allowed {
		t.Fatal("grant should extend the attendant default set")
	}
}

func TestService_RevocationWinsOverGrantAndRole(t *testing.T) {
	manager := &models.User{
		ID:          uuid.New(),
		Role:        enums.RoleManager,
		Grants:      models.CapabilityList{enums.CapForceClose},
		Revocations: models.CapabilityList{enums.CapForceClose},
	}
	svc, _ := newTestService(t, manager)

	allowed, err := svc.Allowed(context.Background(), manager.ID, enums.CapForceClose)
	if err != nil {
		t.Fatalf("Allowed error: %v", err)
	}
	if allowed {
		t.Fatal("revocation should override both role default and grant")
	}
}

func TestService_RequireRecordsDenial(t *testing.T) {
	attendant := &models.User{ID: uuid.New(), Role: enums.RoleAttendant}
	svc, recorder := newTestService(t, attendant)

	err := svc.Require(context.Background(), attendant.ID, enums.CapManageShifts)
	if !pkgerrors.HasCode(err, pkgerrors.CodePermissionDenied) {
		t.Fatalf("expected PERMISSION_DENIED, got %v", err)
	}
	if len(recorder.denials) != 1 {
		t.Fatalf("expected one recorded denial, got %d", len(recorder.denials))
	}
	if recorder.denials[0].actorID != attendant.ID || recorder.denials[0].capability != enums.CapManageShifts {
		t.Fatalf("unexpected denial record: %+v", recorder.denials[0])
	}
}

func TestService_RequireUnknownActor(t *testing.T) {
	svc, recorder := newTestService(t)

	err := svc.Require(context.Background(), uuid.New(), enums.CapRecordSale)
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if len(recorder.denials) != 0 {
		t.Fatal("lookup failures should not be recorded as denials")
	}
}

func TestService_AllowedValidation(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Allowed(context.Background(), uuid.Nil, enums.CapRecordSale); err == nil {
		t.Fatal("expected error for nil actor id")
	}
	if _, err := svc.Allowed(context.Background(), uuid.New(), enums.Capability("not_real")); err == nil {
		t.Fatal("expected error for unknown capability")
	}
}

func TestCapabilitiesFor_StableOrder(t *testing.T) {
	owner := &models.User{ID: uuid.New(), Role: enums.RoleOwner}
	caps := CapabilitiesFor(owner)
	if len(caps) != len(enums.AllCapabilities()) {
		t.Fatalf("owner should hold every capability, got %d", len(caps))
	}
	for i, c := range enums.AllCapabilities() {
		if caps[i] != c {
			t.Fatalf("capability order mismatch at %d: %s", i, caps[i])
		}
	}
}
