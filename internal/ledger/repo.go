package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
)

// Repository manages persistence for accounts and journal entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateAccount(ctx context.Context, account *models.LedgerAccount) error
	GetAccountByCode(ctx context.Context, stationID uuid.UUID, code string) (*models.LedgerAccount, error)
	ListAccounts(ctx context.Context, stationID uuid.UUID) ([]models.LedgerAccount, error)
	AddToBalance(ctx context.Context, accountID uuid.UUID, delta string) error
	CreateEntry(ctx context.Context, entry *models.JournalEntry) error
	ListEntriesBySale(ctx context.Context, saleID uuid.UUID) ([]models.JournalEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateAccount(ctx context.Context, account *models.LedgerAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// GetAccountByCode returns nil without error when the account does not exist.
func (r *repository) GetAccountByCode(ctx context.Context, stationID uuid.UUID, code string) (*models.LedgerAccount, error) {
	var account models.LedgerAccount
	err := r.db.WithContext(ctx).
		Where("station_id = ? AND code = ?", stationID, code).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) ListAccounts(ctx context.Context, stationID uuid.UUID) ([]models.LedgerAccount, error) {
	var accounts []models.LedgerAccount
	err := r.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("code ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repository) AddToBalance(ctx context.Context, accountID uuid.UUID, delta string) error {
	return r.db.WithContext(ctx).
		Model(&models.LedgerAccount{}).
		Where("id = ?", accountID).
		Update("balance", gorm.Expr("balance + ?", delta)).Error
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.JournalEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListEntriesBySale(ctx context.Context, saleID uuid.UUID) ([]models.JournalEntry, error) {
	var entries []models.JournalEntry
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("sale_id = ?", saleID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
