package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
)

// SyncOperation is one pending remote mutation. The ID is derived
// deterministically from the logical mutation, so retries of the same
// enqueue collapse onto one row and the remote store can dedupe deliveries.
type SyncOperation struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	StationID  uuid.UUID               `gorm:"column:station_id;type:uuid;not null;index"`
	OpType     enums.SyncOperationType `gorm:"column:op_type;not null"`
	Collection enums.SyncCollection    `gorm:"column:collection;not null"`
	DocumentID uuid.UUID               `gorm:"column:document_id;type:uuid;not null"`
	Payload    json.RawMessage         `gorm:"column:payload;type:text;not null"`

	Status        enums.SyncStatus `gorm:"column:status;not null;index"`
	Priority      int              `gorm:"column:priority;not null;default:0"`
	RetryCount    int              `gorm:"column:retry_count;not null;default:0"`
	NextAttemptAt *time.Time       `gorm:"column:next_attempt_at"`
	LastError     *string          `gorm:"column:last_error"`

	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	SyncedAt  *time.Time `gorm:"column:synced_at"`
}

func (SyncOperation) TableName() string { return "sync_outbox" }
