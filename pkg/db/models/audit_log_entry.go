package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
)

// AuditLogEntry is one link in the per-station hash chain. Seq is assigned
// in creation order; CurrHash covers PrevHash plus the canonical encoding of
// the entry fields, so any retroactive edit breaks verification from that
// sequence onward.
type AuditLogEntry struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	StationID uuid.UUID         `gorm:"column:station_id;type:uuid;not null;uniqueIndex:ux_audit_log_station_seq"`
	Seq       int64             `gorm:"column:seq;not null;uniqueIndex:ux_audit_log_station_seq"`
	ActorID   uuid.UUID         `gorm:"column:actor_id;type:uuid;not null"`
	Action    enums.AuditAction `gorm:"column:action;not null"`
	RecordRef string            `gorm:"column:record_ref;not null"`
	Payload   json.RawMessage   `gorm:"column:payload;type:text"`
	PrevHash  string            `gorm:"column:prev_hash;not null"`
	CurrHash  string            `gorm:"column:curr_hash;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;not null"`
}

func (AuditLogEntry) TableName() string { return "audit_log" }
