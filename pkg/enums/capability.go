package enums

import "fmt"

// Capability is a single permission the gate can check.
type Capability string

const (
	CapRecordSale    Capability = "can_record_sale"
	CapEditReadings  Capability = "can_edit_readings"
	CapForceClose    Capability = "can_force_close"
	CapManageShifts  Capability = "can_manage_shifts"
	CapSetPeriodLock Capability = "can_set_period_lock"
	CapViewAudit     Capability = "can_view_audit"
)

var validCapabilities = []Capability{
	CapRecordSale,
	CapEditReadings,
	CapForceClose,
	CapManageShifts,
	CapSetPeriodLock,
	CapViewAudit,
}

// AllCapabilities returns every known capability in a stable order.
func AllCapabilities() []Capability {
	out := make([]Capability, len(validCapabilities))
	copy(out, validCapabilities)
	return out
}

// IsValid reports whether the value matches a known capability.
func (c Capability) IsValid() bool {
	for _, candidate := range validCapabilities {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCapability converts raw input into a Capability.
func ParseCapability(value string) (Capability, error) {
	for _, candidate := range validCapabilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid capability %q", value)
}
