package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
)

type contextKey string

const (
	ctxActorID   contextKey = "actor_id"
	ctxRole      contextKey = "actor_role"
	ctxStationID contextKey = "station_id"
)

// ActorIDFromContext returns the authenticated staff member's id, or uuid.Nil.
func ActorIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxActorID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// RoleFromContext returns the authenticated staff member's role.
func RoleFromContext(ctx context.Context) enums.StaffRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.StaffRole); ok {
		return v
	}
	return ""
}

// StationIDFromContext returns the station the token was minted for, or uuid.Nil.
func StationIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxStationID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// WithActor seeds the context the way the auth middleware does, for tests and
// internal callers.
func WithActor(ctx context.Context, actorID, stationID uuid.UUID, role enums.StaffRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxActorID, actorID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return context.WithValue(ctx, ctxStationID, stationID)
}
