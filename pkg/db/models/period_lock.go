package models

import (
	"time"

	"github.com/google/uuid"
)

// PeriodLock stores the cutoff before which no financial record may be
// created or dated for a station.
type PeriodLock struct {
	StationID    uuid.UUID `gorm:"column:station_id;type:uuid;primaryKey"`
	LockedBefore time.Time `gorm:"column:locked_before;not null"`
	SetBy        uuid.UUID `gorm:"column:set_by;type:uuid;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (PeriodLock) TableName() string { return "period_locks" }
