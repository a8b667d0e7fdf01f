package meters

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
)

// Repository manages persistence for metering devices.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, id uuid.UUID) (*models.MeteringDevice, error)
	Save(ctx context.Context, device *models.MeteringDevice) error
	Create(ctx context.Context, device *models.MeteringDevice) error
	ListByStation(ctx context.Context, stationID uuid.UUID) ([]models.MeteringDevice, error)
	ListByShift(ctx context.Context, shiftID uuid.UUID) ([]models.MeteringDevice, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a meter repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.MeteringDevice, error) {
	var device models.MeteringDevice
	if err := r.db.WithContext(ctx).First(&device, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "metering device not found")
		}
		return nil, err
	}
	return &device, nil
}

func (r *repository) Save(ctx context.Context, device *models.MeteringDevice) error {
	return r.db.WithContext(ctx).Save(device).Error
}

func (r *repository) Create(ctx context.Context, device *models.MeteringDevice) error {
	return r.db.WithContext(ctx).Create(device).Error
}

func (r *repository) ListByStation(ctx context.Context, stationID uuid.UUID) ([]models.MeteringDevice, error) {
	var devices []models.MeteringDevice
	err := r.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("pump_label ASC").
		Find(&devices).Error
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func (r *repository) ListByShift(ctx context.Context, shiftID uuid.UUID) ([]models.MeteringDevice, error) {
	var devices []models.MeteringDevice
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		Order("pump_label ASC").
		Find(&devices).Error
	if err != nil {
		return nil, err
	}
	return devices, nil
}
