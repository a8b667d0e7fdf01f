package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"

	pkgauth "github.com/forecourtlabs/forecourt-backend/pkg/auth"
	"github.com/forecourtlabs/forecourt-backend/pkg/config"
	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/security"
)

type fakeRepository struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeRepository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func (f *fakeRepository) ListByStation(ctx context.Context, stationID uuid.UUID) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		if u.StationID == stationID {
			out = append(out, *u)
		}
	}
	return out, nil
}

// testPINConfig keeps argon2 cheap so the suite stays fast.
func testPINConfig() config.PINConfig {
	return config.PINConfig{
		ArgonMemoryKB:    1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "forecourt", ExpirationMinutes: 60}
}

func seedUser(t *testing.T, repo *fakeRepository, pin string) *models.User {
	t.Helper()
	hash, err := security.HashPIN(pin, testPINConfig())
	if err != nil {
		t.Fatalf("HashPIN error: %v", err)
	}
	user := &models.User{
		ID:        uuid.New(),
		StationID: uuid.New(),
		Name:      "Asha",
		Role:      enums.RoleManager,
		PINHash:   hash,
	}
	repo.users[user.ID] = user
	return user
}

func TestService_Login(t *testing.T) {
	repo := &fakeRepository{users: map[uuid.UUID]*models.User{}}
	user := seedUser(t, repo, "4321")
	svc, err := NewService(repo, testJWTConfig())
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	result, err := svc.Login(context.Background(), LoginInput{UserID: user.ID, PIN: "4321"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if result.Role != enums.RoleManager || result.UserID != user.ID {
		t.Fatalf("unexpected result: %+v", result)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), result.Token)
	if err != nil {
		t.Fatalf("minted token should parse: %v", err)
	}
	if claims.UserID != user.ID || claims.StationID != user.StationID || claims.Role != enums.RoleManager {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestService_LoginWrongPIN(t *testing.T) {
	repo := &fakeRepository{users: map[uuid.UUID]*models.User{}}
	user := seedUser(t, repo, "4321")
	svc, _ := NewService(repo, testJWTConfig())

	_, err := svc.Login(context.Background(), LoginInput{UserID: user.ID, PIN: "9999"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestService_LoginUnknownUser(t *testing.T) {
	repo := &fakeRepository{users: map[uuid.UUID]*models.User{}}
	svc, _ := NewService(repo, testJWTConfig())

	_, err := svc.Login(context.Background(), LoginInput{UserID: uuid.New(), PIN: "4321"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("unknown users must read as bad credentials, got %v", err)
	}
}

func TestService_Roster(t *testing.T) {
	repo := &fakeRepository{users: map[uuid.UUID]*models.User{}}
	user := seedUser(t, repo, "4321")
	svc, _ := NewService(repo, testJWTConfig())

	entries, err := svc.Roster(context.Background(), user.StationID)
	if err != nil {
		t.Fatalf("Roster error: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != user.ID {
		t.Fatalf("unexpected roster: %+v", entries)
	}
}
