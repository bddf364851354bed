package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/roomezes/roomezes-backend/pkg/auth"
	"github.com/roomezes/roomezes-backend/pkg/auth/session"
	"github.com/roomezes/roomezes-backend/pkg/config"
	"github.com/roomezes/roomezes-backend/pkg/enums"
)

type stubSessionChecker struct {
	err  error
	seen []session.Context
}

func (s *stubSessionChecker) Observe(_ context.Context, sc session.Context) error {
	s.seen = append(s.seen, sc)
	return s.err
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{JWTSecret: "secret", Issuer: "issuer", Audience: "authenticated", TokenTTL: time.Hour}
}

func mintTestToken(t *testing.T, cfg config.AuthConfig, role enums.UserRole, vendorID *uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID:   uuid.New(),
		Email:    "student@campus.edu",
		Role:     role,
		VendorID: vendorID,
		JTI:      "access-1",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testAuthConfig(), &stubSessionChecker{}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testAuthConfig(), &stubSessionChecker{}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	cfg := testAuthConfig()
	vendorID := uuid.New()
	token := mintTestToken(t, cfg, enums.UserRoleVendor, &vendorID)
	checker := &stubSessionChecker{}

	var captured session.Context
	handler := Auth(cfg, checker, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.IsZero() {
		t.Fatal("expected session in context")
	}
	if captured.Role != enums.UserRoleVendor {
		t.Fatalf("expected vendor role got %s", captured.Role)
	}
	if !captured.IsVendor(vendorID) {
		t.Fatalf("expected session to manage vendor %s", vendorID)
	}
	if captured.AccessID != "access-1" || captured.Email != "student@campus.edu" {
		t.Fatalf("unexpected session %+v", captured)
	}
	if len(checker.seen) != 1 {
		t.Fatalf("expected session to be observed once, got %d", len(checker.seen))
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	cfg := testAuthConfig()
	token := mintTestToken(t, cfg, enums.UserRoleStudent, nil)
	handler := Auth(cfg, &stubSessionChecker{err: session.ErrRevoked}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSurfacesSessionStoreFailure(t *testing.T) {
	cfg := testAuthConfig()
	token := mintTestToken(t, cfg, enums.UserRoleStudent, nil)
	handler := Auth(cfg, &stubSessionChecker{err: errors.New("redis down")}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.UserRoleVendor, enums.UserRoleAdmin)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithSession(req.Context(), session.Context{UserID: uuid.New(), Role: enums.UserRoleStudent}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithSession(req.Context(), session.Context{UserID: uuid.New(), Role: enums.UserRoleAdmin}))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
