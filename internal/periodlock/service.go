package periodlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
)

// Service guards financial writes against closed accounting periods.
type Service interface {
	// EnsureOpen fails with PERIOD_LOCKED when the date falls strictly
	// before the station's lock boundary.
	EnsureOpen(ctx context.Context, stationID uuid.UUID, date time.Time) error
	// SetLock moves the boundary. The lock only ever moves forward.
	SetLock(ctx context.Context, input SetLockInput) (*models.PeriodLock, error)
	Get(ctx context.Context, stationID uuid.UUID) (*models.PeriodLock, error)
}

// SetLockInput carries the new boundary and who set it.
type SetLockInput struct {
	StationID    uuid.UUID
	LockedBefore time.Time
	SetBy        uuid.UUID
}

type service struct {
	repo Repository
}

// NewService wires a period lock service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("period lock repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) EnsureOpen(ctx context.Context, stationID uuid.UUID, date time.Time) error {
	if stationID == uuid.Nil {
		return fmt.Errorf("station id is required")
	}
	if date.IsZero() {
		return fmt.Errorf("date is required")
	}

	lock, err := s.repo.Get(ctx, stationID)
	if err != nil {
		return err
	}
	if lock == nil {
		return nil
	}
	if date.Before(lock.LockedBefore) {
		return pkgerrors.NewPeriodLocked(lock.LockedBefore, date)
	}
	return nil
}

func (s *service) SetLock(ctx context.Context, input SetLockInput) (*models.PeriodLock, error) {
	if input.StationID == uuid.Nil {
		return nil, fmt.Errorf("station id is required")
	}
	if input.LockedBefore.IsZero() {
		return nil, fmt.Errorf("lock boundary is required")
	}
	if input.SetBy == uuid.Nil {
		return nil, fmt.Errorf("set-by actor is required")
	}

	existing, err := s.repo.Get(ctx, input.StationID)
	if err != nil {
		return nil, err
	}
	if existing != nil && input.LockedBefore.Before(existing.LockedBefore) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period lock cannot move backwards")
	}

	lock := &models.PeriodLock{
		StationID:    input.StationID,
		LockedBefore: input.LockedBefore,
		SetBy:        input.SetBy,
	}
	if err := s.repo.Upsert(ctx, lock); err != nil {
		return nil, err
	}
	return lock, nil
}

func (s *service) Get(ctx context.Context, stationID uuid.UUID) (*models.PeriodLock, error) {
	if stationID == uuid.Nil {
		return nil, fmt.Errorf("station id is required")
	}
	return s.repo.Get(ctx, stationID)
}
