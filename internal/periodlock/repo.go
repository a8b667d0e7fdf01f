package periodlock

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
)

// Repository manages persistence for the per-station period lock.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, stationID uuid.UUID) (*models.PeriodLock, error)
	Upsert(ctx context.Context, lock *models.PeriodLock) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a period lock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Get returns nil without error when the station has no lock yet.
func (r *repository) Get(ctx context.Context, stationID uuid.UUID) (*models.PeriodLock, error) {
	var lock models.PeriodLock
	if err := r.db.WithContext(ctx).First(&lock, "station_id = ?", stationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lock, nil
}

func (r *repository) Upsert(ctx context.Context, lock *models.PeriodLock) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "station_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"locked_before", "set_by", "updated_at"}),
		}).
		Create(lock).Error
}
