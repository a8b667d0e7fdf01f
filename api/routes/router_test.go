package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/internal/reconciliation"
	"github.com/forecourtlabs/forecourt-backend/internal/shifts"
	pkgauth "github.com/forecourtlabs/forecourt-backend/pkg/auth"
	"github.com/forecourtlabs/forecourt-backend/pkg/config"
	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
)

type stubShiftService struct {
	active *models.Shift
}

func (s *stubShiftService) Open(ctx context.Context, input shifts.OpenInput) (*models.Shift, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubShiftService) Close(ctx context.Context, input shifts.CloseInput) (*shifts.CloseResult, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubShiftService) Preview(ctx context.Context, shiftID uuid.UUID, declaredCash *decimal.Decimal) (*reconciliation.Report, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubShiftService) GetActive(ctx context.Context, stationID uuid.UUID) (*models.Shift, error) {
	if s.active == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNoActiveShift, "no open shift for station")
	}
	return s.active, nil
}

func (s *stubShiftService) Get(ctx context.Context, id uuid.UUID) (*models.Shift, error) {
	return nil, pkgerrors.New(pkgerrors.CodeShiftNotFound, "shift not found")
}

func (s *stubShiftService) ListRecent(ctx context.Context, stationID uuid.UUID, limit int) ([]models.Shift, error) {
	return nil, nil
}

func (s *stubShiftService) ApplySaleTotalsTx(ctx context.Context, tx *gorm.DB, shiftID uuid.UUID, amount, quantity decimal.Decimal, method enums.PaymentMethod) error {
	return fmt.Errorf("not implemented")
}

func testRouterConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080", StationID: uuid.NewString(), LogLevel: "error"},
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "forecourt", ExpirationMinutes: 60},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, shiftService shifts.Service) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error")})
	return NewRouter(
		cfg, logg, nil,
		nil, nil, nil,
		shiftService, nil, nil,
		nil, nil, nil,
		nil, nil, nil,
		nil,
	)
}

func mintToken(t *testing.T, cfg *config.Config, role enums.StaffRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:    uuid.New(),
		StationID: uuid.New(),
		Role:      role,
	})
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}
	return token
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter(t, testRouterConfig(), &stubShiftService{})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterPrivateRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, testRouterConfig(), &stubShiftService{})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/sales"},
		{http.MethodGet, "/api/v1/shifts/active"},
		{http.MethodGet, "/api/v1/sync/status"},
	}
	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, strings.NewReader("{}"))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", p.method, p.path, resp.Code)
		}
	}
}

func TestRouterManagementRoutesRejectAttendant(t *testing.T) {
	cfg := testRouterConfig()
	router := newTestRouter(t, cfg, &stubShiftService{})
	token := mintToken(t, cfg, enums.RoleAttendant)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/audit"},
		{http.MethodGet, "/api/v1/sync/status"},
		{http.MethodPut, "/api/v1/period-lock"},
	}
	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, strings.NewReader("{}"))
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403 got %d", p.method, p.path, resp.Code)
		}
	}
}

func TestRouterActiveShiftReachesService(t *testing.T) {
	cfg := testRouterConfig()
	shift := &models.Shift{ID: uuid.New(), Status: enums.ShiftStatusOpen}
	router := newTestRouter(t, cfg, &stubShiftService{active: shift})
	token := mintToken(t, cfg, enums.RoleAttendant)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/shifts/active", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), shift.ID.String()) {
		t.Fatalf("response should carry the shift id: %s", resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/shifts/active", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	noShift := newTestRouter(t, cfg, &stubShiftService{})
	noShift.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
