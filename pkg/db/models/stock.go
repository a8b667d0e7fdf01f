package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockLevel tracks the quantity on hand per product (tank dip for fuel).
type StockLevel struct {
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;primaryKey"`
	StationID    uuid.UUID       `gorm:"column:station_id;type:uuid;not null;index"`
	AvailableQty decimal.Decimal `gorm:"column:available_qty;type:numeric;not null"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (StockLevel) TableName() string { return "stock_levels" }

// StockMovement is the append-only before/after record for every stock
// change, written in the same transaction as the change itself.
type StockMovement struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	StationID uuid.UUID  `gorm:"column:station_id;type:uuid;not null;index"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null;index"`
	SaleID    *uuid.UUID `gorm:"column:sale_id;type:uuid"`

	QtyBefore decimal.Decimal `gorm:"column:qty_before;type:numeric;not null"`
	QtyAfter  decimal.Decimal `gorm:"column:qty_after;type:numeric;not null"`
	Delta     decimal.Decimal `gorm:"column:delta;type:numeric;not null"`

	Reason    string    `gorm:"column:reason;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (StockMovement) TableName() string { return "stock_movements" }
