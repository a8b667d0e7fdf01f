package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
)

// Sale is one billed dispense. Logically immutable after creation apart from
// the status field.
type Sale struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	StationID uuid.UUID  `gorm:"column:station_id;type:uuid;not null;index"`
	ShiftID   uuid.UUID  `gorm:"column:shift_id;type:uuid;not null;index"`
	DeviceID  uuid.UUID  `gorm:"column:device_id;type:uuid;not null"`
	StaffID   uuid.UUID  `gorm:"column:staff_id;type:uuid;not null"`
	CustomerID *uuid.UUID `gorm:"column:customer_id;type:uuid"`

	// Items is a versioned document (sales.SaleItems), decoded once at the
	// boundary instead of being re-parsed ad hoc.
	Items json.RawMessage `gorm:"column:items;type:text;not null"`

	Quantity      decimal.Decimal     `gorm:"column:quantity;type:numeric;not null"`
	UnitPrice     decimal.Decimal     `gorm:"column:unit_price;type:numeric;not null"`
	TaxAmount     decimal.Decimal     `gorm:"column:tax_amount;type:numeric;not null"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric;not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null"`
	Status        enums.SaleStatus    `gorm:"column:status;not null"`

	SaleDate  time.Time `gorm:"column:sale_date;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Sale) TableName() string { return "sales" }
