package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
)

// MovementInput describes one stock change.
type MovementInput struct {
	StationID uuid.UUID
	ProductID uuid.UUID
	SaleID    *uuid.UUID
	Quantity  decimal.Decimal
	Reason    enums.StockMovementReason
}

// Service maintains stock levels with an append-only movement trail. Every
// change writes the level and a before/after movement in the same
// transaction.
type Service interface {
	// DeductForSaleTx removes sold quantity, failing with
	// INSUFFICIENT_STOCK when the level cannot cover it.
	DeductForSaleTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.StockLevel, error)
	// ReceiveTx adds delivered or adjusted quantity.
	ReceiveTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.StockLevel, error)
	GetLevel(ctx context.Context, productID uuid.UUID) (*models.StockLevel, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	Movements(ctx context.Context, productID uuid.UUID, limit int) ([]models.StockMovement, error)
}

type service struct {
	repo Repository
}

// NewService wires an inventory service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) DeductForSaleTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.StockLevel, error) {
	if err := validateMovement(input); err != nil {
		return nil, err
	}
	if input.Reason == "" {
		input.Reason = enums.StockMovementSale
	}

	repo := s.repo.WithTx(tx)
	level, err := repo.GetLevel(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if level == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no stock level for product")
	}

	if level.AvailableQty.LessThan(input.Quantity) {
		return nil, pkgerrors.NewInsufficientStock(input.Quantity, level.AvailableQty)
	}

	return s.applyChange(ctx, repo, level, input, input.Quantity.Neg())
}

func (s *service) ReceiveTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.StockLevel, error) {
	if err := validateMovement(input); err != nil {
		return nil, err
	}
	if input.Reason == "" {
		input.Reason = enums.StockMovementDelivery
	}

	repo := s.repo.WithTx(tx)
	level, err := repo.GetLevel(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if level == nil {
		level = &models.StockLevel{
			ProductID:    input.ProductID,
			StationID:    input.StationID,
			AvailableQty: decimal.Zero,
		}
	}

	return s.applyChange(ctx, repo, level, input, input.Quantity)
}

func (s *service) applyChange(ctx context.Context, repo Repository, level *models.StockLevel, input MovementInput, delta decimal.Decimal) (*models.StockLevel, error) {
	before := level.AvailableQty
	level.AvailableQty = before.Add(delta)
	if err := repo.SaveLevel(ctx, level); err != nil {
		return nil, err
	}

	movement := &models.StockMovement{
		ID:        uuid.Must(uuid.NewV7()),
		StationID: input.StationID,
		ProductID: input.ProductID,
		SaleID:    input.SaleID,
		QtyBefore: before,
		QtyAfter:  level.AvailableQty,
		Delta:     delta,
		Reason:    string(input.Reason),
	}
	if err := repo.InsertMovement(ctx, movement); err != nil {
		return nil, err
	}
	return level, nil
}

func (s *service) GetLevel(ctx context.Context, productID uuid.UUID) (*models.StockLevel, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("product id is required")
	}
	return s.repo.GetLevel(ctx, productID)
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("product id is required")
	}
	return s.repo.GetProduct(ctx, productID)
}

func (s *service) Movements(ctx context.Context, productID uuid.UUID, limit int) ([]models.StockMovement, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("product id is required")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListMovements(ctx, productID, limit)
}

func validateMovement(input MovementInput) error {
	if input.StationID == uuid.Nil {
		return fmt.Errorf("station id is required")
	}
	if input.ProductID == uuid.Nil {
		return fmt.Errorf("product id is required")
	}
	if !input.Quantity.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}
