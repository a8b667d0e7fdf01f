package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
)

// LedgerAccount carries a kind and a running balance. Balances are derived
// solely from posted journal entries.
type LedgerAccount struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	StationID uuid.UUID         `gorm:"column:station_id;type:uuid;not null;uniqueIndex:ux_ledger_accounts_station_code"`
	Code      string            `gorm:"column:code;not null;uniqueIndex:ux_ledger_accounts_station_code"`
	Name      string            `gorm:"column:name;not null"`
	Kind      enums.AccountKind `gorm:"column:kind;not null"`
	Balance   decimal.Decimal   `gorm:"column:balance;type:numeric;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (LedgerAccount) TableName() string { return "ledger_accounts" }

// Well-known account codes seeded at setup time.
const (
	AccountCodeCash       = "CASH"
	AccountCodeBank       = "BANK"
	AccountCodeReceivable = "RECEIVABLE"
	AccountCodeSales      = "SALES"
)
