package reconciliation

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
)

// MeterWindow is one device's reading pair for the shift being reconciled.
type MeterWindow struct {
	DeviceID uuid.UUID
	Opening  decimal.Decimal
	Closing  decimal.Decimal
}

// Input gathers everything the engine needs. The engine itself performs no
// I/O; callers load readings and totals and pass them in.
type Input struct {
	Meters       []MeterWindow
	SoldQuantity decimal.Decimal
	// PaymentTotals is the per-method sum of sale amounts for the shift.
	PaymentTotals map[enums.PaymentMethod]decimal.Decimal
	DeclaredCash  *decimal.Decimal

	MeterTolerance decimal.Decimal
	CashTolerance  decimal.Decimal
}

// Report is the engine's verdict. Variances keep their sign: positive meter
// variance means the meters moved more than was billed.
type Report struct {
	ExpectedQuantity decimal.Decimal `json:"expected_quantity"`
	SoldQuantity     decimal.Decimal `json:"sold_quantity"`
	QuantityVariance decimal.Decimal `json:"quantity_variance"`
	MeterWithinLimit bool            `json:"meter_within_limit"`

	ExpectedCash    decimal.Decimal  `json:"expected_cash"`
	DeclaredCash    *decimal.Decimal `json:"declared_cash,omitempty"`
	CashVariance    *decimal.Decimal `json:"cash_variance,omitempty"`
	CashWithinLimit bool             `json:"cash_within_limit"`
}

// Compute reconciles meter movement against billed quantity and declared
// cash against cash-method sales.
func Compute(input Input) (*Report, error) {
	expectedQty := decimal.Zero
	for _, m := range input.Meters {
		if m.Closing.LessThan(m.Opening) {
			return nil, pkgerrors.New(pkgerrors.CodeMeterRegression,
				fmt.Sprintf("device %s closing reading below opening", m.DeviceID)).
				WithDetails(map[string]string{
					"device_id": m.DeviceID.String(),
					"opening":   m.Opening.String(),
					"closing":   m.Closing.String(),
				})
		}
		expectedQty = expectedQty.Add(m.Closing.Sub(m.Opening))
	}

	report := &Report{
		ExpectedQuantity: expectedQty,
		SoldQuantity:     input.SoldQuantity,
		QuantityVariance: expectedQty.Sub(input.SoldQuantity),
		ExpectedCash:     input.PaymentTotals[enums.PaymentMethodCash],
	}
	report.MeterWithinLimit = report.QuantityVariance.Abs().LessThanOrEqual(input.MeterTolerance)

	if input.DeclaredCash != nil {
		declared := *input.DeclaredCash
		variance := declared.Sub(report.ExpectedCash)
		report.DeclaredCash = &declared
		report.CashVariance = &variance
		report.CashWithinLimit = variance.Abs().LessThanOrEqual(input.CashTolerance)
	} else {
		// No declaration means nothing to dispute.
		report.CashWithinLimit = true
	}

	return report, nil
}

// StaffShare is one staff member's settlement portion.
type StaffShare struct {
	StaffID uuid.UUID       `json:"staff_id"`
	Amount  decimal.Decimal `json:"amount"`
}

// SettlementSplit divides the shift total evenly across staff, to two
// decimal places. Rounding remainders go to the first staff member so the
// shares always sum exactly to the total.
func SettlementSplit(total decimal.Decimal, staffIDs []uuid.UUID) ([]StaffShare, error) {
	if len(staffIDs) == 0 {
		return nil, fmt.Errorf("at least one staff member required")
	}

	n := decimal.NewFromInt(int64(len(staffIDs)))
	base := total.Div(n).RoundDown(2)
	remainder := total.Sub(base.Mul(n))

	shares := make([]StaffShare, 0, len(staffIDs))
	for i, id := range staffIDs {
		amount := base
		if i == 0 {
			amount = amount.Add(remainder)
		}
		shares = append(shares, StaffShare{StaffID: id, Amount: amount})
	}
	return shares, nil
}
