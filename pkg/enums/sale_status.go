package enums

import "fmt"

// SaleStatus distinguishes settled sales from credit sales awaiting payment.
type SaleStatus string

const (
	SaleStatusPaid      SaleStatus = "paid"
	SaleStatusUnpaid    SaleStatus = "unpaid"
	SaleStatusCancelled SaleStatus = "cancelled"
)

var validSaleStatuses = []SaleStatus{
	SaleStatusPaid,
	SaleStatusUnpaid,
	SaleStatusCancelled,
}

// IsValid reports whether the value matches a known sale status.
func (s SaleStatus) IsValid() bool {
	for _, candidate := range validSaleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleStatus converts raw input into a SaleStatus.
func ParseSaleStatus(value string) (SaleStatus, error) {
	for _, candidate := range validSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}
