package db

import "strings"

// IsUniqueViolation reports whether the provided error references a unique
// constraint failure. The message forms differ between sqlite and postgres,
// so both are matched; when constraintName is provided the helper looks for
// the constraint or index name in the error text.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
