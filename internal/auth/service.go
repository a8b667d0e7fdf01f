package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/forecourtlabs/forecourt-backend/pkg/auth"
	"github.com/forecourtlabs/forecourt-backend/pkg/config"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/security"
)

// LoginInput is the terminal's credential pair: the staff member picked from
// the roster plus their PIN.
type LoginInput struct {
	UserID uuid.UUID
	PIN    string
}

// TokenResult is a minted access token with its subject.
type TokenResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	UserID    uuid.UUID       `json:"user_id"`
	Name      string          `json:"name"`
	Role      enums.StaffRole `json:"role"`
}

// RosterEntry is the login screen's view of a staff member. No hashes leak.
type RosterEntry struct {
	ID   uuid.UUID       `json:"id"`
	Name string          `json:"name"`
	Role enums.StaffRole `json:"role"`
}

// Service authenticates staff against their argon2id PIN hash and mints
// station-scoped access tokens.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*TokenResult, error)
	Roster(ctx context.Context, stationID uuid.UUID) ([]RosterEntry, error)
}

type service struct {
	repo Repository
	jwt  config.JWTConfig
}

// NewService wires the login service.
func NewService(repo Repository, jwt config.JWTConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("staff repository required")
	}
	if jwt.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	return &service{repo: repo, jwt: jwt}, nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*TokenResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.PIN == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pin is required")
	}

	user, err := s.repo.GetUser(ctx, input.UserID)
	if err != nil {
		// A missing user reads the same as a wrong PIN.
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, err
	}

	ok, err := security.VerifyPIN(input.PIN, user.PINHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify pin")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	now := time.Now().UTC()
	token, err := pkgauth.MintAccessToken(s.jwt, now, pkgauth.AccessTokenPayload{
		UserID:    user.ID,
		StationID: user.StationID,
		Role:      user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &TokenResult{
		Token:     token,
		ExpiresAt: now.Add(s.jwt.Expiration()),
		UserID:    user.ID,
		Name:      user.Name,
		Role:      user.Role,
	}, nil
}

func (s *service) Roster(ctx context.Context, stationID uuid.UUID) ([]RosterEntry, error) {
	if stationID == uuid.Nil {
		return nil, fmt.Errorf("station id is required")
	}
	users, err := s.repo.ListByStation(ctx, stationID)
	if err != nil {
		return nil, err
	}
	entries := make([]RosterEntry, 0, len(users))
	for _, user := range users {
		entries = append(entries, RosterEntry{ID: user.ID, Name: user.Name, Role: user.Role})
	}
	return entries, nil
}
