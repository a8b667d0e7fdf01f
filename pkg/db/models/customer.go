package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer carries credit standing for khata/credit sales.
type Customer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	StationID uuid.UUID `gorm:"column:station_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	Phone     *string   `gorm:"column:phone"`

	CurrentDues decimal.Decimal  `gorm:"column:current_dues;type:numeric;not null"`
	CreditLimit *decimal.Decimal `gorm:"column:credit_limit;type:numeric"`
	Blocked     bool             `gorm:"column:blocked;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Customer) TableName() string { return "customers" }
