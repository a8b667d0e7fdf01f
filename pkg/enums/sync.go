package enums

import "fmt"

// SyncOperationType maps to the mutation kinds the remote store accepts.
type SyncOperationType string

const (
	SyncOpCreate SyncOperationType = "create"
	SyncOpUpdate SyncOperationType = "update"
	SyncOpDelete SyncOperationType = "delete"
)

var validSyncOperationTypes = []SyncOperationType{
	SyncOpCreate,
	SyncOpUpdate,
	SyncOpDelete,
}

// IsValid reports whether the value matches a known operation type.
func (t SyncOperationType) IsValid() bool {
	for _, candidate := range validSyncOperationTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseSyncOperationType converts raw input into a SyncOperationType.
func ParseSyncOperationType(value string) (SyncOperationType, error) {
	for _, candidate := range validSyncOperationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync operation type %q", value)
}

// SyncStatus tracks a queued operation through delivery.
//
// pending -> in_flight -> synced is the happy path. Failures return the
// operation to failed with retry bookkeeping until the retry ceiling moves it
// to dead_lettered, which is terminal.
type SyncStatus string

const (
	SyncStatusPending      SyncStatus = "pending"
	SyncStatusInFlight     SyncStatus = "in_flight"
	SyncStatusSynced       SyncStatus = "synced"
	SyncStatusFailed       SyncStatus = "failed"
	SyncStatusDeadLettered SyncStatus = "dead_lettered"
)

var validSyncStatuses = []SyncStatus{
	SyncStatusPending,
	SyncStatusInFlight,
	SyncStatusSynced,
	SyncStatusFailed,
	SyncStatusDeadLettered,
}

// IsValid reports whether the value matches a known sync status.
func (s SyncStatus) IsValid() bool {
	for _, candidate := range validSyncStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further delivery attempts may occur.
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusSynced || s == SyncStatusDeadLettered
}

// ParseSyncStatus converts raw input into a SyncStatus.
func ParseSyncStatus(value string) (SyncStatus, error) {
	for _, candidate := range validSyncStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync status %q", value)
}

// SyncCollection names the remote collections the outbox targets.
type SyncCollection string

const (
	CollectionSales      SyncCollection = "sales"
	CollectionShifts     SyncCollection = "shifts"
	CollectionStock      SyncCollection = "stock_levels"
	CollectionDevices    SyncCollection = "metering_devices"
	CollectionJournals   SyncCollection = "journal_entries"
	CollectionCustomers  SyncCollection = "customers"
	CollectionPeriodLock SyncCollection = "period_locks"
)

var validSyncCollections = []SyncCollection{
	CollectionSales,
	CollectionShifts,
	CollectionStock,
	CollectionDevices,
	CollectionJournals,
	CollectionCustomers,
	CollectionPeriodLock,
}

// IsValid reports whether the value matches a known collection.
func (c SyncCollection) IsValid() bool {
	for _, candidate := range validSyncCollections {
		if candidate == c {
			return true
		}
	}
	return false
}
