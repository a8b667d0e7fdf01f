package enums

import "fmt"

// StaffRole is the coarse role attached to a station user.
type StaffRole string

const (
	RoleOwner     StaffRole = "owner"
	RoleManager   StaffRole = "manager"
	RoleAttendant StaffRole = "attendant"
)

var validStaffRoles = []StaffRole{
	RoleOwner,
	RoleManager,
	RoleAttendant,
}

// IsValid reports whether the value matches a known role.
func (r StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseStaffRole converts raw input into a StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
