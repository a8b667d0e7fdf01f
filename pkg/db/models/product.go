package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a metered good (fuel grade) or shop item.
type Product struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StationID uuid.UUID       `gorm:"column:station_id;type:uuid;not null;index"`
	Name      string          `gorm:"column:name;not null"`
	SKU       *string         `gorm:"column:sku"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric;not null"`
	Unit      string          `gorm:"column:unit;not null;default:litre"`
	// TaxRatePercent is the tax-inclusive rate applied to sales of this product.
	TaxRatePercent decimal.Decimal `gorm:"column:tax_rate_percent;type:numeric;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
