package enums

// SyncDLQReason explains why an operation stopped being retried.
type SyncDLQReason string

const (
	SyncDLQReasonMaxAttempts  SyncDLQReason = "max_attempts"
	SyncDLQReasonNonRetryable SyncDLQReason = "non_retryable"
)

// IsValid reports whether the value matches a known dead-letter reason.
func (r SyncDLQReason) IsValid() bool {
	return r == SyncDLQReasonMaxAttempts || r == SyncDLQReasonNonRetryable
}
