package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
)

// SyncDeadLetter preserves an operation that exhausted delivery so ops
// tooling can inspect and replay it manually.
type SyncDeadLetter struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OperationID uuid.UUID               `gorm:"column:operation_id;type:uuid;not null;uniqueIndex"`
	StationID   uuid.UUID               `gorm:"column:station_id;type:uuid;not null;index"`
	OpType      enums.SyncOperationType `gorm:"column:op_type;not null"`
	Collection  enums.SyncCollection    `gorm:"column:collection;not null"`
	DocumentID  uuid.UUID               `gorm:"column:document_id;type:uuid;not null"`
	Payload     json.RawMessage         `gorm:"column:payload;type:text;not null"`
	Reason      enums.SyncDLQReason     `gorm:"column:reason;not null"`
	LastError   *string                 `gorm:"column:last_error"`
	RetryCount  int                     `gorm:"column:retry_count;not null"`
	FailedAt    time.Time               `gorm:"column:failed_at;not null"`
}

func (SyncDeadLetter) TableName() string { return "sync_dead_letters" }
