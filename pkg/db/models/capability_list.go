package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
)

// CapabilityList stores per-user capability overrides as a JSON array column.
type CapabilityList []enums.Capability

// Value implements driver.Valuer.
func (l CapabilityList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *CapabilityList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported type %T for CapabilityList", value)
	}
}

// Contains reports whether the list holds the given capability.
func (l CapabilityList) Contains(cap enums.Capability) bool {
	for _, candidate := range l {
		if candidate == cap {
			return true
		}
	}
	return false
}
