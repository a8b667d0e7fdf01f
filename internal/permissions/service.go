package permissions

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/security"
)

// roleDefaults is the baseline capability set per role. Per-user overrides
// apply on top: grants extend the default, revocations win over both.
var roleDefaults = map[enums.StaffRole][]enums.Capability{
	enums.RoleOwner: {
		enums.CapRecordSale,
		enums.CapEditReadings,
		enums.CapForceClose,
		enums.CapManageShifts,
		enums.CapSetPeriodLock,
		enums.CapViewAudit,
	},
	enums.RoleManager: {
		enums.CapRecordSale,
		enums.CapEditReadings,
		enums.CapForceClose,
		enums.CapManageShifts,
		enums.CapViewAudit,
	},
	enums.RoleAttendant: {
		enums.CapRecordSale,
	},
}

// DenialRecorder is notified whenever a capability check fails, so denials
// land in the audit trail without the gate depending on the audit package.
type DenialRecorder interface {
	PermissionDenied(ctx context.Context, actorID uuid.UUID, capability enums.Capability)
}

// Service is the single authority for capability decisions.
type Service interface {
	// Require returns a coded error when the actor lacks the capability.
	Require(ctx context.Context, actorID uuid.UUID, capability enums.Capability) error
	// Allowed reports the decision without treating denial as an error.
	Allowed(ctx context.Context, actorID uuid.UUID, capability enums.Capability) (bool, error)
	// VerifySupervisorPIN checks the PIN of a staff member holding the
	// capability, for elevated confirmations at the terminal.
	VerifySupervisorPIN(ctx context.Context, supervisorID uuid.UUID, pin string, capability enums.Capability) error
}

type service struct {
	repo     Repository
	recorder DenialRecorder
}

// NewService wires the permission gate. The recorder may be nil.
func NewService(repo Repository, recorder DenialRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("permissions repository required")
	}
	return &service{repo: repo, recorder: recorder}, nil
}

func (s *service) Allowed(ctx context.Context, actorID uuid.UUID, capability enums.Capability) (bool, error) {
	if actorID == uuid.Nil {
		return false, fmt.Errorf("actor id is required")
	}
	if !capability.IsValid() {
		return false, fmt.Errorf("invalid capability %q", capability)
	}

	user, err := s.repo.GetUser(ctx, actorID)
	if err != nil {
		return false, err
	}
	return CapabilitiesFor(user).Contains(capability), nil
}

func (s *service) Require(ctx context.Context, actorID uuid.UUID, capability enums.Capability) error {
	allowed, err := s.Allowed(ctx, actorID, capability)
	if err != nil {
		return err
	}
	if !allowed {
		if s.recorder != nil {
			s.recorder.PermissionDenied(ctx, actorID, capability)
		}
		return pkgerrors.NewPermissionDenied(string(capability))
	}
	return nil
}

func (s *service) VerifySupervisorPIN(ctx context.Context, supervisorID uuid.UUID, pin string, capability enums.Capability) error {
	if pin == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "supervisor PIN is required")
	}
	if err := s.Require(ctx, supervisorID, capability); err != nil {
		return err
	}

	user, err := s.repo.GetUser(ctx, supervisorID)
	if err != nil {
		return err
	}
	ok, err := security.VerifyPIN(pin, user.PINHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify supervisor PIN")
	}
	if !ok {
		if s.recorder != nil {
			s.recorder.PermissionDenied(ctx, supervisorID, capability)
		}
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "supervisor PIN does not match")
	}
	return nil
}

// CapabilitiesFor resolves the effective capability set for a user.
func CapabilitiesFor(user *models.User) models.CapabilityList {
	if user == nil {
		return nil
	}

	effective := map[enums.Capability]bool{}
	for _, c := range roleDefaults[user.Role] {
		effective[c] = true
	}
	for _, c := range user.Grants {
		effective[c] = true
	}
	for _, c := range user.Revocations {
		delete(effective, c)
	}

	out := make(models.CapabilityList, 0, len(effective))
	for _, c := range enums.AllCapabilities() {
		if effective[c] {
			out = append(out, c)
		}
	}
	return out
}
