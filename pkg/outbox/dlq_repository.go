package outbox

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
)

type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.SyncDeadLetter) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(&entry).Error
}

func (r *DLQRepository) List(stationID uuid.UUID, limit int) ([]models.SyncDeadLetter, error) {
	var rows []models.SyncDeadLetter
	err := r.db.Where("station_id = ?", stationID).
		Order("failed_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
