package customers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
)

type fakeRepository struct {
	customers map[uuid.UUID]*models.Customer
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{customers: map[uuid.UUID]*models.Customer{}}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	if customer, ok := f.customers[id]; ok {
		copied := *customer
		return &copied, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
}

func (f *fakeRepository) Save(ctx context.Context, customer *models.Customer) error {
	copied := *customer
	f.customers[customer.ID] = &copied
	return nil
}

func (f *fakeRepository) Create(ctx context.Context, customer *models.Customer) error {
	return f.Save(ctx, customer)
}

func (f *fakeRepository) List(ctx context.Context, stationID uuid.UUID, limit int) ([]models.Customer, error) {
	var out []models.Customer
	for _, c := range f.customers {
		if c.StationID == stationID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func seedCustomer(f *fakeRepository, dues, limit string, blocked bool) *models.Customer {
	customer := &models.Customer{
		ID:          uuid.New(),
		StationID:   uuid.New(),
		Name:        "Transport Co",
		CurrentDues: decimal.RequireFromString(dues),
		Blocked:     blocked,
	}
	if limit != "" {
		l := decimal.RequireFromString(limit)
		customer.CreditLimit = &l
	}
	f.customers[customer.ID] = customer
	return customer
}

func TestService_ApplyCreditSale(t *testing.T) {
	repo := newFakeRepository()
	customer := seedCustomer(repo, "1000.00", "5000.00", false)
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	updated, err := svc.ApplyCreditSaleTx(context.Background(), &gorm.DB{}, customer.ID, dec(t, "1500.00"))
	if err != nil {
		t.Fatalf("ApplyCreditSaleTx error: %v", err)
	}
	if !updated.CurrentDues.Equal(dec(t, "2500.00")) {
		t.Fatalf("expected dues 2500.00, got %s", updated.CurrentDues)
	}
}

func TestService_ApplyCreditSaleAtLimit(t *testing.T) {
	repo := newFakeRepository()
	customer := seedCustomer(repo, "4000.00", "5000.00", false)
	svc, _ := NewService(repo)

	// Exactly reaching the limit is allowed.
	if _, err := svc.ApplyCreditSaleTx(context.Background(), &gorm.DB{}, customer.ID, dec(t, "1000.00")); err != nil {
		t.Fatalf("sale reaching the limit exactly should pass: %v", err)
	}

	// One paisa over is not.
	_, err := svc.ApplyCreditSaleTx(context.Background(), &gorm.DB{}, customer.ID, dec(t, "0.01"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeCreditLimit) {
		t.Fatalf("expected CREDIT_LIMIT_EXCEEDED, got %v", err)
	}
}

func TestService_ApplyCreditSaleBlocked(t *testing.T) {
	repo := newFakeRepository()
	customer := seedCustomer(repo, "0", "5000.00", true)
	svc, _ := NewService(repo)

	_, err := svc.ApplyCreditSaleTx(context.Background(), &gorm.DB{}, customer.ID, dec(t, "10.00"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeCustomerBlocked) {
		t.Fatalf("expected CUSTOMER_BLOCKED, got %v", err)
	}
	if !repo.customers[customer.ID].CurrentDues.IsZero() {
		t.Fatal("blocked sale must not change dues")
	}
}

func TestService_ApplyCreditSaleNoLimit(t *testing.T) {
	repo := newFakeRepository()
	customer := seedCustomer(repo, "90000.00", "", false)
	svc, _ := NewService(repo)

	if _, err := svc.ApplyCreditSaleTx(context.Background(), &gorm.DB{}, customer.ID, dec(t, "10000.00")); err != nil {
		t.Fatalf("customer without a limit should accept any amount: %v", err)
	}
}

func TestService_RecordPayment(t *testing.T) {
	repo := newFakeRepository()
	customer := seedCustomer(repo, "2500.00", "5000.00", false)
	svc, _ := NewService(repo)

	updated, err := svc.RecordPaymentTx(context.Background(), &gorm.DB{}, customer.ID, dec(t, "2000.00"))
	if err != nil {
		t.Fatalf("RecordPaymentTx error: %v", err)
	}
	if !updated.CurrentDues.Equal(dec(t, "500.00")) {
		t.Fatalf("expected dues 500.00, got %s", updated.CurrentDues)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := NewService(newFakeRepository())

	if _, err := svc.Create(context.Background(), CreateInput{Name: "x"}); err == nil {
		t.Fatal("expected error for missing station id")
	}
	if _, err := svc.Create(context.Background(), CreateInput{StationID: uuid.New()}); err == nil {
		t.Fatal("expected error for missing name")
	}
	negative := dec(t, "-1")
	if _, err := svc.Create(context.Background(), CreateInput{StationID: uuid.New(), Name: "x", CreditLimit: &negative}); err == nil {
		t.Fatal("expected error for negative credit limit")
	}
}
