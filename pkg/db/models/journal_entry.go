package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalEntry is a balanced set of journal lines referencing the
// originating sale.
type JournalEntry struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	StationID uuid.UUID  `gorm:"column:station_id;type:uuid;not null;index"`
	SaleID    *uuid.UUID `gorm:"column:sale_id;type:uuid;index"`
	Memo      string     `gorm:"column:memo"`
	EntryDate time.Time  `gorm:"column:entry_date;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`

	Lines []JournalLine `gorm:"foreignKey:EntryID"`
}

func (JournalEntry) TableName() string { return "journal_entries" }

// JournalLine debits or credits a single account. Exactly one of Debit and
// Credit is non-zero.
type JournalLine struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	EntryID   uuid.UUID       `gorm:"column:entry_id;type:uuid;not null;index"`
	AccountID uuid.UUID       `gorm:"column:account_id;type:uuid;not null"`
	Debit     decimal.Decimal `gorm:"column:debit;type:numeric;not null"`
	Credit    decimal.Decimal `gorm:"column:credit;type:numeric;not null"`
}

func (JournalLine) TableName() string { return "journal_lines" }
