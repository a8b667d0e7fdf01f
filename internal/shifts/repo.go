package shifts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
)

// Repository manages persistence for shifts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, id uuid.UUID) (*models.Shift, error)
	GetOpen(ctx context.Context, stationID uuid.UUID) (*models.Shift, error)
	Create(ctx context.Context, shift *models.Shift) error
	Save(ctx context.Context, shift *models.Shift) error
	ListRecent(ctx context.Context, stationID uuid.UUID, limit int) ([]models.Shift, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a shift repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.Shift, error) {
	var shift models.Shift
	if err := r.db.WithContext(ctx).First(&shift, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeShiftNotFound, "shift not found")
		}
		return nil, err
	}
	return &shift, nil
}

// GetOpen returns nil without error when the station has no open shift.
func (r *repository) GetOpen(ctx context.Context, stationID uuid.UUID) (*models.Shift, error) {
	var shift models.Shift
	err := r.db.WithContext(ctx).
		Where("station_id = ? AND status = ?", stationID, enums.ShiftStatusOpen).
		First(&shift).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shift, nil
}

func (r *repository) Create(ctx context.Context, shift *models.Shift) error {
	return r.db.WithContext(ctx).Create(shift).Error
}

func (r *repository) Save(ctx context.Context, shift *models.Shift) error {
	return r.db.WithContext(ctx).Save(shift).Error
}

func (r *repository) ListRecent(ctx context.Context, stationID uuid.UUID, limit int) ([]models.Shift, error) {
	var shifts []models.Shift
	err := r.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("started_at DESC").
		Limit(limit).
		Find(&shifts).Error
	if err != nil {
		return nil, err
	}
	return shifts, nil
}
