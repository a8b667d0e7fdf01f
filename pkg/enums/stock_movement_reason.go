package enums

import "fmt"

// StockMovementReason records why a stock level changed.
type StockMovementReason string

const (
	StockMovementSale       StockMovementReason = "sale"
	StockMovementDelivery   StockMovementReason = "delivery"
	StockMovementAdjustment StockMovementReason = "adjustment"
)

var validStockMovementReasons = []StockMovementReason{
	StockMovementSale,
	StockMovementDelivery,
	StockMovementAdjustment,
}

// IsValid reports whether the value matches a known movement reason.
func (r StockMovementReason) IsValid() bool {
	for _, candidate := range validStockMovementReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseStockMovementReason converts raw input into a StockMovementReason.
func ParseStockMovementReason(value string) (StockMovementReason, error) {
	for _, candidate := range validStockMovementReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement reason %q", value)
}
