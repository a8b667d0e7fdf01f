package outbox

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) InsertTx(tx *gorm.DB, op models.SyncOperation) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(&op).Error
}

func (r *Repository) ExistsTx(tx *gorm.DB, id uuid.UUID) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	var count int64
	err := tx.Model(&models.SyncOperation{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// FetchDue returns deliverable operations ordered by priority tier (lower
// value dispatches first) then creation order. Rows already in flight are
// included once their reclaim timestamp passes, which recovers deliveries
// interrupted by a crash or cancellation without ever re-delivering a
// synced operation.
func (r *Repository) FetchDue(tx *gorm.DB, limit int, now time.Time) ([]models.SyncOperation, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	var rows []models.SyncOperation
	err := tx.
		Where("status IN ?", []enums.SyncStatus{
			enums.SyncStatusPending,
			enums.SyncStatusFailed,
			enums.SyncStatusInFlight,
		}).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Order("priority ASC").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkInFlightTx stamps the batch as in flight and schedules a reclaim time
// in case delivery never reports back.
func (r *Repository) MarkInFlightTx(tx *gorm.DB, ids []uuid.UUID, reclaimAt time.Time) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if len(ids) == 0 {
		return nil
	}
	return tx.Model(&models.SyncOperation{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":          enums.SyncStatusInFlight,
			"next_attempt_at": reclaimAt,
		}).Error
}

// MarkSynced transitions to the terminal synced state. The status predicate
// makes a second call for the same id a no-op; the returned count tells the
// caller whether this call won.
func (r *Repository) MarkSynced(id uuid.UUID, at time.Time) (int64, error) {
	res := r.db.Model(&models.SyncOperation{}).
		Where("id = ? AND status IN ?", id, []enums.SyncStatus{
			enums.SyncStatusPending,
			enums.SyncStatusInFlight,
			enums.SyncStatusFailed,
		}).
		Updates(map[string]any{
			"status":          enums.SyncStatusSynced,
			"synced_at":       at,
			"next_attempt_at": nil,
			"last_error":      nil,
		})
	return res.RowsAffected, res.Error
}

func (r *Repository) MarkFailed(id uuid.UUID, deliveryErr error, nextAttempt time.Time) error {
	msg := deliveryErr.Error()
	return r.db.Model(&models.SyncOperation{}).
		Where("id = ? AND status IN ?", id, []enums.SyncStatus{
			enums.SyncStatusPending,
			enums.SyncStatusInFlight,
			enums.SyncStatusFailed,
		}).
		Updates(map[string]any{
			"status":          enums.SyncStatusFailed,
			"retry_count":     gorm.Expr("retry_count + 1"),
			"next_attempt_at": nextAttempt,
			"last_error":      msg,
		}).Error
}

func (r *Repository) MarkDeadLetteredTx(tx *gorm.DB, id uuid.UUID, deliveryErr error) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	msg := deliveryErr.Error()
	return tx.Model(&models.SyncOperation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          enums.SyncStatusDeadLettered,
			"next_attempt_at": nil,
			"last_error":      msg,
		}).Error
}

func (r *Repository) Get(id uuid.UUID) (*models.SyncOperation, error) {
	var op models.SyncOperation
	if err := r.db.Where("id = ?", id).First(&op).Error; err != nil {
		return nil, err
	}
	return &op, nil
}

// CountByStatus powers the sync status endpoint.
func (r *Repository) CountByStatus(stationID uuid.UUID) (map[enums.SyncStatus]int64, error) {
	type row struct {
		Status enums.SyncStatus
		N      int64
	}
	var rows []row
	err := r.db.Model(&models.SyncOperation{}).
		Select("status, COUNT(*) AS n").
		Where("station_id = ?", stationID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.SyncStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}
