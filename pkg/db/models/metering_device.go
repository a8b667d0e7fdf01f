package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MeteringDevice is a physical nozzle/counter. Its cumulative reading only
// increases; closing - opening within one shift is the dispensed quantity.
type MeteringDevice struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	StationID uuid.UUID `gorm:"column:station_id;type:uuid;not null;index"`
	PumpLabel string    `gorm:"column:pump_label;not null"`
	// ProductID links the nozzle to the stock item it dispenses.
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`

	OpeningReading decimal.Decimal `gorm:"column:opening_reading;type:numeric;not null"`
	ClosingReading decimal.Decimal `gorm:"column:closing_reading;type:numeric;not null"`
	ShiftID        *uuid.UUID      `gorm:"column:shift_id;type:uuid;index"`
	// AssignedStaffID is the attendant responsible for the nozzle this shift.
	AssignedStaffID *uuid.UUID `gorm:"column:assigned_staff_id;type:uuid"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (MeteringDevice) TableName() string { return "metering_devices" }

// Delta returns closing - opening for the current shift window.
func (d MeteringDevice) Delta() decimal.Decimal {
	return d.ClosingReading.Sub(d.OpeningReading)
}
