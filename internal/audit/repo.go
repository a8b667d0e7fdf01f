package audit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
)

// Repository manages persistence for the append-only audit log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, entry *models.AuditLogEntry) error
	Last(ctx context.Context, stationID uuid.UUID) (*models.AuditLogEntry, error)
	ListFrom(ctx context.Context, stationID uuid.UUID, fromSeq int64, limit int) ([]models.AuditLogEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, entry *models.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Last returns nil without error for an empty chain.
func (r *repository) Last(ctx context.Context, stationID uuid.UUID) (*models.AuditLogEntry, error) {
	var entry models.AuditLogEntry
	err := r.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("seq DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListFrom(ctx context.Context, stationID uuid.UUID, fromSeq int64, limit int) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	err := r.db.WithContext(ctx).
		Where("station_id = ? AND seq >= ?", stationID, fromSeq).
		Order("seq ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
