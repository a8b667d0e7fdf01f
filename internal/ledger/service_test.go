package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
)

type fakeRepository struct {
	accounts map[string]*models.LedgerAccount // code -> account
	entries  []*models.JournalEntry
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{accounts: map[string]*models.LedgerAccount{}}
}

func (f *fakeRepository) addAccount(stationID uuid.UUID, code string, kind enums.AccountKind) *models.LedgerAccount {
	account := &models.LedgerAccount{
		ID:        uuid.New(),
		StationID: stationID,
		Code:      code,
		Kind:      kind,
		Balance:   decimal.Zero,
	}
	f.accounts[code] = account
	return account
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) CreateAccount(ctx context.Context, account *models.LedgerAccount) error {
	f.accounts[account.Code] = account
	return nil
}

func (f *fakeRepository) GetAccountByCode(ctx context.Context, stationID uuid.UUID, code string) (*models.LedgerAccount, error) {
	if account, ok := f.accounts[code]; ok && account.StationID == stationID {
		return account, nil
	}
	return nil, nil
}

func (f *fakeRepository) ListAccounts(ctx context.Context, stationID uuid.UUID) ([]models.LedgerAccount, error) {
	var out []models.LedgerAccount
	for _, account := range f.accounts {
		if account.StationID == stationID {
			out = append(out, *account)
		}
	}
	return out, nil
}

func (f *fakeRepository) AddToBalance(ctx context.Context, accountID uuid.UUID, delta string) error {
	d, err := decimal.NewFromString(delta)
	if err != nil {
		return err
	}
	for _, account := range f.accounts {
		if account.ID == accountID {
			account.Balance = account.Balance.Add(d)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) CreateEntry(ctx context.Context, entry *models.JournalEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeRepository) ListEntriesBySale(ctx context.Context, saleID uuid.UUID) ([]models.JournalEntry, error) {
	var out []models.JournalEntry
	for _, entry := range f.entries {
		if entry.SaleID != nil && *entry.SaleID == saleID {
			out = append(out, *entry)
		}
	}
	return out, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestService_PostCashSale(t *testing.T) {
	repo := newFakeRepository()
	stationID := uuid.New()
	cash := repo.addAccount(stationID, models.AccountCodeCash, enums.AccountKindAsset)
	sales := repo.addAccount(stationID, models.AccountCodeSales, enums.AccountKindIncome)

	svc, err := NewService(repo, fakeTxRunner{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	saleID := uuid.New()
	entry, err := svc.Post(context.Background(), PostInput{
		StationID: stationID,
		SaleID:    &saleID,
		Memo:      "cash sale",
		EntryDate: time.Now(),
		Lines: []LineInput{
			{AccountCode: models.AccountCodeCash, Debit: dec(t, "1180.00")},
			{AccountCode: models.AccountCodeSales, Credit: dec(t, "1180.00")},
		},
	})
	if err != nil {
		t.Fatalf("Post error: %v", err)
	}
	if len(entry.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(entry.Lines))
	}

	// Debit grows the asset, credit grows the income account.
	if !cash.Balance.Equal(dec(t, "1180.00")) {
		t.Fatalf("cash balance should be 1180.00, got %s", cash.Balance)
	}
	if !sales.Balance.Equal(dec(t, "1180.00")) {
		t.Fatalf("sales balance should be 1180.00, got %s", sales.Balance)
	}
}

func TestService_PostCreditNormalDirection(t *testing.T) {
	repo := newFakeRepository()
	stationID := uuid.New()
	sales := repo.addAccount(stationID, models.AccountCodeSales, enums.AccountKindIncome)
	receivable := repo.addAccount(stationID, models.AccountCodeReceivable, enums.AccountKindAsset)

	svc, err := NewService(repo, fakeTxRunner{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	// A refund-style entry: debiting income shrinks it.
	_, err = svc.Post(context.Background(), PostInput{
		StationID: stationID,
		EntryDate: time.Now(),
		Lines: []LineInput{
			{AccountCode: models.AccountCodeSales, Debit: dec(t, "200.00")},
			{AccountCode: models.AccountCodeReceivable, Credit: dec(t, "200.00")},
		},
	})
	if err != nil {
		t.Fatalf("Post error: %v", err)
	}

	if !sales.Balance.Equal(dec(t, "-200.00")) {
		t.Fatalf("debiting income should shrink it, got %s", sales.Balance)
	}
	if !receivable.Balance.Equal(dec(t, "-200.00")) {
		t.Fatalf("crediting an asset should shrink it, got %s", receivable.Balance)
	}
}

func TestService_PostRejectsUnbalanced(t *testing.T) {
	repo := newFakeRepository()
	stationID := uuid.New()
	repo.addAccount(stationID, models.AccountCodeCash, enums.AccountKindAsset)
	repo.addAccount(stationID, models.AccountCodeSales, enums.AccountKindIncome)

	svc, _ := NewService(repo, fakeTxRunner{})

	_, err := svc.Post(context.Background(), PostInput{
		StationID: stationID,
		EntryDate: time.Now(),
		Lines: []LineInput{
			{AccountCode: models.AccountCodeCash, Debit: dec(t, "100.00")},
			{AccountCode: models.AccountCodeSales, Credit: dec(t, "99.00")},
		},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnbalancedEntry) {
		t.Fatalf("expected UNBALANCED_ENTRY, got %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatal("unbalanced entry must not be persisted")
	}
}

func TestService_PostRejectsBothSidesSet(t *testing.T) {
	repo := newFakeRepository()
	stationID := uuid.New()
	repo.addAccount(stationID, models.AccountCodeCash, enums.AccountKindAsset)
	repo.addAccount(stationID, models.AccountCodeSales, enums.AccountKindIncome)

	svc, _ := NewService(repo, fakeTxRunner{})

	_, err := svc.Post(context.Background(), PostInput{
		StationID: stationID,
		EntryDate: time.Now(),
		Lines: []LineInput{
			{AccountCode: models.AccountCodeCash, Debit: dec(t, "50.00"), Credit: dec(t, "50.00")},
			{AccountCode: models.AccountCodeSales, Credit: dec(t, "50.00")},
		},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnbalancedEntry) {
		t.Fatalf("expected UNBALANCED_ENTRY, got %v", err)
	}
}

func TestService_PostUnknownAccount(t *testing.T) {
	repo := newFakeRepository()
	stationID := uuid.New()
	repo.addAccount(stationID, models.AccountCodeCash, enums.AccountKindAsset)

	svc, _ := NewService(repo, fakeTxRunner{})

	_, err := svc.Post(context.Background(), PostInput{
		StationID: stationID,
		EntryDate: time.Now(),
		Lines: []LineInput{
			{AccountCode: models.AccountCodeCash, Debit: dec(t, "100.00")},
			{AccountCode: "LOTTERY", Credit: dec(t, "100.00")},
		},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnknownAccount) {
		t.Fatalf("expected UNKNOWN_ACCOUNT, got %v", err)
	}
}

func TestService_EnsureCoreAccountsIdempotent(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := NewService(repo, fakeTxRunner{})
	stationID := uuid.New()

	if err := svc.EnsureCoreAccounts(context.Background(), stationID); err != nil {
		t.Fatalf("EnsureCoreAccounts error: %v", err)
	}
	if err := svc.EnsureCoreAccounts(context.Background(), stationID); err != nil {
		t.Fatalf("second EnsureCoreAccounts error: %v", err)
	}

	accounts, _ := repo.ListAccounts(context.Background(), stationID)
	if len(accounts) != 4 {
		t.Fatalf("expected 4 core accounts, got %d", len(accounts))
	}
}
