package enums

import "fmt"

// AuditAction labels an entry in the tamper-evident audit chain.
type AuditAction string

const (
	AuditShiftOpen         AuditAction = "SHIFT_OPEN"
	AuditShiftClose        AuditAction = "SHIFT_CLOSE"
	AuditShiftForceClose   AuditAction = "SHIFT_FORCE_CLOSE"
	AuditSaleCreated       AuditAction = "SALE_CREATED"
	AuditOpeningReadingSet AuditAction = "OPENING_READING_SET"
	AuditClosingReadingSet AuditAction = "CLOSING_READING_SET"
	AuditPermissionDenied  AuditAction = "PERMISSION_DENIED"
	AuditPeriodLockSet     AuditAction = "PERIOD_LOCK_SET"
	AuditDeviceAssigned    AuditAction = "DEVICE_ASSIGNED"
)

var validAuditActions = []AuditAction{
	AuditShiftOpen,
	AuditShiftClose,
	AuditShiftForceClose,
	AuditSaleCreated,
	AuditOpeningReadingSet,
	AuditClosingReadingSet,
	AuditPermissionDenied,
	AuditPeriodLockSet,
	AuditDeviceAssigned,
}

// IsValid reports whether the value matches a known audit action.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
