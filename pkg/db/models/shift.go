package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
)

// Shift is a bounded work period. At most one shift is open per station; the
// partial unique index ux_shifts_station_open enforces the invariant at the
// storage layer as well as in ShiftRegistry.
type Shift struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	StationID uuid.UUID         `gorm:"column:station_id;type:uuid;not null;index"`
	Name      string            `gorm:"column:name;not null"`
	Status    enums.ShiftStatus `gorm:"column:status;not null"`
	StaffIDs  UUIDList          `gorm:"column:staff_ids;type:text;not null"`
	StartedAt time.Time         `gorm:"column:started_at;not null"`
	EndedAt   *time.Time        `gorm:"column:ended_at"`

	// Derived totals, written only by the sale coordinator and shift close.
	TotalAmount   decimal.Decimal `gorm:"column:total_amount;type:numeric;not null"`
	TotalQuantity decimal.Decimal `gorm:"column:total_quantity;type:numeric;not null"`
	PaymentTotals json.RawMessage `gorm:"column:payment_totals;type:text"`

	// Closure metadata.
	ClosedBy     *uuid.UUID       `gorm:"column:closed_by;type:uuid"`
	DeclaredCash *decimal.Decimal `gorm:"column:declared_cash;type:numeric"`
	Variance     *decimal.Decimal `gorm:"column:variance;type:numeric"`
	WasForced    bool             `gorm:"column:was_forced;not null;default:false"`
	Settlement   json.RawMessage  `gorm:"column:settlement;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Shift) TableName() string { return "shifts" }
