package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	StationID uuid.UUID
	Role      enums.StaffRole
}

// AccessTokenClaims represents the typed JWT issued to the terminal.
type AccessTokenClaims struct {
	UserID    uuid.UUID       `json:"user_id"`
	StationID uuid.UUID       `json:"station_id"`
	Role      enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}
