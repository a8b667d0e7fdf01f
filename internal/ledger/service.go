package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
)

// LineInput debits or credits one account, referenced by code.
type LineInput struct {
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// PostInput is one balanced journal entry to record.
type PostInput struct {
	StationID uuid.UUID
	SaleID    *uuid.UUID
	Memo      string
	EntryDate time.Time
	Lines     []LineInput
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service posts journal entries and maintains account balances.
type Service interface {
	// PostTx validates and records the entry within the caller's
	// transaction, adjusting each touched account's running balance.
	PostTx(ctx context.Context, tx *gorm.DB, input PostInput) (*models.JournalEntry, error)
	Post(ctx context.Context, input PostInput) (*models.JournalEntry, error)
	// EnsureCoreAccounts creates the well-known accounts a station needs
	// if they do not exist yet.
	EnsureCoreAccounts(ctx context.Context, stationID uuid.UUID) error
	ListAccounts(ctx context.Context, stationID uuid.UUID) ([]models.LedgerAccount, error)
	EntriesForSale(ctx context.Context, saleID uuid.UUID) ([]models.JournalEntry, error)
}

type service struct {
	repo Repository
	db   txRunner
}

// NewService wires the ledger service with the provided repository and
// transaction runner.
func NewService(repo Repository, db txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if db == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, db: db}, nil
}

func (s *service) Post(ctx context.Context, input PostInput) (*models.JournalEntry, error) {
	var entry *models.JournalEntry
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		entry, txErr = s.PostTx(ctx, tx, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) PostTx(ctx context.Context, tx *gorm.DB, input PostInput) (*models.JournalEntry, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if input.StationID == uuid.Nil {
		return nil, fmt.Errorf("station id is required")
	}
	if input.EntryDate.IsZero() {
		return nil, fmt.Errorf("entry date is required")
	}
	if len(input.Lines) < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeUnbalancedEntry, "a journal entry needs at least two lines")
	}

	debits := decimal.Zero
	credits := decimal.Zero
	for _, line := range input.Lines {
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeUnbalancedEntry, "journal line amounts cannot be negative")
		}
		debitSet := line.Debit.IsPositive()
		creditSet := line.Credit.IsPositive()
		if debitSet == creditSet {
			return nil, pkgerrors.New(pkgerrors.CodeUnbalancedEntry, "each journal line must set exactly one of debit or credit")
		}
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}
	if !debits.Equal(credits) {
		return nil, pkgerrors.New(pkgerrors.CodeUnbalancedEntry, "journal entry debits and credits do not balance").
			WithDetails(map[string]string{"debits": debits.String(), "credits": credits.String()})
	}

	repo := s.repo.WithTx(tx)

	entry := &models.JournalEntry{
		ID:        uuid.Must(uuid.NewV7()),
		StationID: input.StationID,
		SaleID:    input.SaleID,
		Memo:      input.Memo,
		EntryDate: input.EntryDate,
	}

	type balanceChange struct {
		accountID uuid.UUID
		delta     decimal.Decimal
	}
	changes := make([]balanceChange, 0, len(input.Lines))

	for _, line := range input.Lines {
		account, err := repo.GetAccountByCode(ctx, input.StationID, line.AccountCode)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnknownAccount,
				fmt.Sprintf("unknown ledger account %q", line.AccountCode))
		}

		entry.Lines = append(entry.Lines, models.JournalLine{
			ID:        uuid.Must(uuid.NewV7()),
			EntryID:   entry.ID,
			AccountID: account.ID,
			Debit:     line.Debit,
			Credit:    line.Credit,
		})

		// Debit-normal accounts grow with debits, credit-normal with credits.
		delta := line.Debit.Sub(line.Credit)
		if !account.Kind.DebitNormal() {
			delta = delta.Neg()
		}
		changes = append(changes, balanceChange{accountID: account.ID, delta: delta})
	}

	if err := repo.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}
	for _, change := range changes {
		if err := repo.AddToBalance(ctx, change.accountID, change.delta.String()); err != nil {
			return nil, err
		}
	}

	return entry, nil
}

// coreAccounts is the minimal chart every station starts with.
var coreAccounts = []struct {
	code string
	name string
	kind enums.AccountKind
}{
	{models.AccountCodeCash, "Cash in hand", enums.AccountKindAsset},
	{models.AccountCodeBank, "Bank and card settlements", enums.AccountKindAsset},
	{models.AccountCodeReceivable, "Customer receivables", enums.AccountKindAsset},
	{models.AccountCodeSales, "Fuel and shop sales", enums.AccountKindIncome},
}

func (s *service) EnsureCoreAccounts(ctx context.Context, stationID uuid.UUID) error {
	if stationID == uuid.Nil {
		return fmt.Errorf("station id is required")
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, def := range coreAccounts {
			existing, err := repo.GetAccountByCode(ctx, stationID, def.code)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			account := &models.LedgerAccount{
				ID:        uuid.Must(uuid.NewV7()),
				StationID: stationID,
				Code:      def.code,
				Name:      def.name,
				Kind:      def.kind,
				Balance:   decimal.Zero,
			}
			if err := repo.CreateAccount(ctx, account); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) ListAccounts(ctx context.Context, stationID uuid.UUID) ([]models.LedgerAccount, error) {
	if stationID == uuid.Nil {
		return nil, fmt.Errorf("station id is required")
	}
	return s.repo.ListAccounts(ctx, stationID)
}

func (s *service) EntriesForSale(ctx context.Context, saleID uuid.UUID) ([]models.JournalEntry, error) {
	if saleID == uuid.Nil {
		return nil, fmt.Errorf("sale id is required")
	}
	return s.repo.ListEntriesBySale(ctx, saleID)
}
