package shifts

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
)

// PaymentTotals is the per-method running sum stored on the shift row.
type PaymentTotals map[enums.PaymentMethod]decimal.Decimal

// DecodePaymentTotals reads the stored JSON document. A missing or empty
// document decodes to an empty map.
func DecodePaymentTotals(raw json.RawMessage) (PaymentTotals, error) {
	totals := PaymentTotals{}
	if len(raw) == 0 {
		return totals, nil
	}
	if err := json.Unmarshal(raw, &totals); err != nil {
		return nil, err
	}
	return totals, nil
}

// Encode serializes the totals for storage.
func (t PaymentTotals) Encode() (json.RawMessage, error) {
	return json.Marshal(t)
}

// Add returns the totals with the amount added under the method.
func (t PaymentTotals) Add(method enums.PaymentMethod, amount decimal.Decimal) PaymentTotals {
	t[method] = t[method].Add(amount)
	return t
}
