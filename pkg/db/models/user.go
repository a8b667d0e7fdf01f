package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
)

// User is a station staff member. Grants/Revocations override the role's
// default capability set for this user only.
type User struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StationID uuid.UUID       `gorm:"column:station_id;type:uuid;not null;index"`
	Name      string          `gorm:"column:name;not null"`
	Role      enums.StaffRole `gorm:"column:role;not null"`
	// PINHash is the argon2id encoding of the supervisor PIN.
	PINHash string `gorm:"column:pin_hash;not null"`

	Grants      CapabilityList `gorm:"column:grants;type:text"`
	Revocations CapabilityList `gorm:"column:revocations;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }
