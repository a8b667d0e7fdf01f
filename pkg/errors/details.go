package errors

import (
	"time"

	"github.com/shopspring/decimal"
)

// InsufficientStockDetails reports how far a sale overshot available stock.
type InsufficientStockDetails struct {
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
}

// CreditLimitDetails explains a rejected credit sale.
type CreditLimitDetails struct {
	CurrentDues decimal.Decimal `json:"current_dues"`
	SaleTotal   decimal.Decimal `json:"sale_total"`
	Limit       decimal.Decimal `json:"limit"`
}

// PeriodLockedDetails carries the lock boundary and the offending date.
type PeriodLockedDetails struct {
	LockedUntil   time.Time `json:"locked_until"`
	AttemptedDate time.Time `json:"attempted_date"`
}

// PermissionDeniedDetails names the missing capability.
type PermissionDeniedDetails struct {
	Permission string `json:"permission"`
}

// VarianceDetails carries expected versus actual quantities at shift close.
type VarianceDetails struct {
	Expected decimal.Decimal `json:"expected"`
	Actual   decimal.Decimal `json:"actual"`
	Variance decimal.Decimal `json:"variance"`
}

// CashMismatchDetails carries declared versus expected cash at shift close.
type CashMismatchDetails struct {
	Declared decimal.Decimal `json:"declared"`
	Expected decimal.Decimal `json:"expected"`
	Variance decimal.Decimal `json:"variance"`
}

func NewInsufficientStock(requested, available decimal.Decimal) *Error {
	return New(CodeInsufficientStock, "insufficient stock for sale").
		WithDetails(InsufficientStockDetails{Requested: requested, Available: available})
}

func NewCreditLimitExceeded(currentDues, saleTotal, limit decimal.Decimal) *Error {
	return New(CodeCreditLimit, "credit limit exceeded").
		WithDetails(CreditLimitDetails{CurrentDues: currentDues, SaleTotal: saleTotal, Limit: limit})
}

func NewPeriodLocked(lockedUntil, attempted time.Time) *Error {
	return New(CodePeriodLocked, "date falls inside a locked accounting period").
		WithDetails(PeriodLockedDetails{LockedUntil: lockedUntil, AttemptedDate: attempted})
}

func NewPermissionDenied(permission string) *Error {
	return New(CodePermissionDenied, "actor lacks required capability").
		WithDetails(PermissionDeniedDetails{Permission: permission})
}

func NewReconciliationVariance(expected, actual decimal.Decimal) *Error {
	return New(CodeVariance, "meter variance outside tolerance").
		WithDetails(VarianceDetails{
			Expected: expected,
			Actual:   actual,
			Variance: expected.Sub(actual),
		})
}

func NewCashDeclarationMismatch(declared, expected decimal.Decimal) *Error {
	return New(CodeCashMismatch, "declared cash outside tolerance").
		WithDetails(CashMismatchDetails{
			Declared: declared,
			Expected: expected,
			Variance: declared.Sub(expected),
		})
}
