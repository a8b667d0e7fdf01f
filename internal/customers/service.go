package customers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
)

// Service maintains customer credit standing (khata balances).
type Service interface {
	// ApplyCreditSaleTx adds a credit sale to the customer's dues after
	// checking the blocked flag and credit limit.
	ApplyCreditSaleTx(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, amount decimal.Decimal) (*models.Customer, error)
	// RecordPaymentTx reduces dues by a repayment.
	RecordPaymentTx(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, amount decimal.Decimal) (*models.Customer, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, stationID uuid.UUID, limit int) ([]models.Customer, error)
	Create(ctx context.Context, input CreateInput) (*models.Customer, error)
}

// CreateInput registers a new credit customer.
type CreateInput struct {
	StationID   uuid.UUID
	Name        string
	Phone       *string
	CreditLimit *decimal.Decimal
}

type service struct {
	repo Repository
}

// NewService wires a customer service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ApplyCreditSaleTx(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, amount decimal.Decimal) (*models.Customer, error) {
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("customer id is required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	customer, err := repo.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if customer.Blocked {
		return nil, pkgerrors.New(pkgerrors.CodeCustomerBlocked, "customer is blocked from credit sales")
	}
	if customer.CreditLimit != nil {
		projected := customer.CurrentDues.Add(amount)
		if projected.GreaterThan(*customer.CreditLimit) {
			return nil, pkgerrors.NewCreditLimitExceeded(customer.CurrentDues, amount, *customer.CreditLimit)
		}
	}

	customer.CurrentDues = customer.CurrentDues.Add(amount)
	if err := repo.Save(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *service) RecordPaymentTx(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, amount decimal.Decimal) (*models.Customer, error) {
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("customer id is required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	customer, err := repo.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	customer.CurrentDues = customer.CurrentDues.Sub(amount)
	if err := repo.Save(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("customer id is required")
	}
	return s.repo.Get(ctx, id)
}

func (s *service) List(ctx context.Context, stationID uuid.UUID, limit int) ([]models.Customer, error) {
	if stationID == uuid.Nil {
		return nil, fmt.Errorf("station id is required")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.List(ctx, stationID, limit)
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Customer, error) {
	if input.StationID == uuid.Nil {
		return nil, fmt.Errorf("station id is required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if input.CreditLimit != nil && input.CreditLimit.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit limit cannot be negative")
	}

	customer := &models.Customer{
		ID:          uuid.Must(uuid.NewV7()),
		StationID:   input.StationID,
		Name:        input.Name,
		Phone:       input.Phone,
		CurrentDues: decimal.Zero,
		CreditLimit: input.CreditLimit,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}
