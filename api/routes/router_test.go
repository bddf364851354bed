package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roomezes/roomezes-backend/api/controllers"
	cartsvc "github.com/roomezes/roomezes-backend/internal/cart"
	"github.com/roomezes/roomezes-backend/internal/checkout"
	"github.com/roomezes/roomezes-backend/internal/menu"
	"github.com/roomezes/roomezes-backend/internal/orders"
	pkgAuth "github.com/roomezes/roomezes-backend/pkg/auth"
	"github.com/roomezes/roomezes-backend/pkg/auth/session"
	"github.com/roomezes/roomezes-backend/pkg/config"
	"github.com/roomezes/roomezes-backend/pkg/enums"
	"github.com/roomezes/roomezes-backend/pkg/metrics"
	"github.com/roomezes/roomezes-backend/pkg/pagination"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubSessionManager struct {
	signedOut int
}

func (s *stubSessionManager) Observe(context.Context, session.Context) error {
	return nil
}

func (s *stubSessionManager) SignOut(context.Context, session.Context) error {
	s.signedOut++
	return nil
}

type stubCart struct{}

func (stubCart) Get(context.Context, session.Context) (*cartsvc.View, error) {
	return &cartsvc.View{Items: []cartsvc.LineView{}, Total: "0.00", Currency: enums.CurrencyINR}, nil
}

func (stubCart) AddItem(context.Context, session.Context, uuid.UUID) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (stubCart) SetQuantity(context.Context, session.Context, uuid.UUID, int) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (stubCart) RemoveItem(context.Context, session.Context, uuid.UUID) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (stubCart) Clear(context.Context, session.Context) error {
	return nil
}

type stubCheckout struct{}

func (stubCheckout) Begin(context.Context, session.Context, uuid.UUID) (*checkout.Intent, error) {
	return &checkout.Intent{ExternalOrderRef: "order_ABC123", KeyID: "rzp_test_key", Currency: enums.CurrencyINR}, nil
}

func (stubCheckout) Resolve(context.Context, session.Context, string, checkout.Outcome) (*checkout.Result, error) {
	return &checkout.Result{OrderID: uuid.New(), PaymentID: "pay_XYZ"}, nil
}

type stubOrders struct{}

func (stubOrders) Get(_ context.Context, _ session.Context, id uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{ID: id}, nil
}

func (stubOrders) ListForUser(context.Context, session.Context, pagination.Params, orders.ListFilters) (*orders.OrderList, error) {
	return &orders.OrderList{Items: []orders.OrderDTO{}}, nil
}

func (stubOrders) ListForVendor(context.Context, session.Context, uuid.UUID, pagination.Params, orders.ListFilters) (*orders.OrderList, error) {
	return &orders.OrderList{Items: []orders.OrderDTO{}}, nil
}

func (stubOrders) UpdateStatus(_ context.Context, _ session.Context, id uuid.UUID, next enums.OrderStatus) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{ID: id, Status: next}, nil
}

type stubMenu struct{}

func (stubMenu) ListVendorMenu(context.Context, uuid.UUID) ([]menu.ItemDTO, error) {
	return []menu.ItemDTO{}, nil
}

func (stubMenu) UpdateItem(_ context.Context, _ session.Context, id uuid.UUID, _ menu.UpdateItemInput) (*menu.ItemDTO, error) {
	return &menu.ItemDTO{ID: id}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		Auth: config.AuthConfig{JWTSecret: "secret", Issuer: "issuer", Audience: "authenticated", TokenTTL: time.Hour},
		Checkout: config.CheckoutConfig{
			BeginLimit:  10,
			BeginWindow: time.Minute,
		},
	}
}

func newTestRouter(t *testing.T, pingErr error) (http.Handler, *stubSessionManager, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sessions := &stubSessionManager{}
	router := NewRouter(Deps{
		Config:      testConfig(),
		Pingers:     map[string]controllers.Pinger{"db": stubPinger{err: pingErr}},
		Sessions:    sessions,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Gatherer:    reg,
		Cart:        stubCart{},
		Checkout:    stubCheckout{},
		Orders:      stubOrders{},
		Menu:        stubMenu{},
	})
	return router, sessions, reg
}

func tokenFor(t *testing.T, role enums.UserRole, vendorID *uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().Auth, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   uuid.New(),
		Role:     role,
		VendorID: vendorID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthRoutes(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)
	if resp := serve(router, http.MethodGet, "/health/live", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/health/ready", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", resp.Code)
	}

	failing, _, _ := newTestRouter(t, errors.New("db down"))
	if resp := serve(failing, http.MethodGet, "/health/ready", "", ""); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready with failing db: expected 503 got %d", resp.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)
	for _, target := range []string{"/api/v1/cart", "/api/v1/orders"} {
		if resp := serve(router, http.MethodGet, target, "", ""); resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", target, resp.Code)
		}
	}
}

func TestPublicMenuRoute(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)
	resp := serve(router, http.MethodGet, "/api/v1/vendors/"+uuid.NewString()+"/menu", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestStudentRoutes(t *testing.T) {
	router, sessions, _ := newTestRouter(t, nil)
	token := tokenFor(t, enums.UserRoleStudent, nil)

	if resp := serve(router, http.MethodGet, "/api/v1/cart", token, ""); resp.Code != http.StatusOK {
		t.Fatalf("cart: expected 200 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodPost, "/api/v1/checkout", token, ""); resp.Code != http.StatusCreated {
		t.Fatalf("checkout: expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	verify := `{"razorpayOrderId":"order_ABC123","razorpayPaymentId":"pay_XYZ","razorpaySignature":"abc"}`
	if resp := serve(router, http.MethodPost, "/api/v1/checkout/verify", token, verify); resp.Code != http.StatusOK {
		t.Fatalf("verify: expected 200 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/api/v1/vendor/orders", token, ""); resp.Code != http.StatusForbidden {
		t.Fatalf("vendor orders as student: expected 403 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodPost, "/api/v1/auth/logout", token, ""); resp.Code != http.StatusOK {
		t.Fatalf("logout: expected 200 got %d", resp.Code)
	}
	if sessions.signedOut != 1 {
		t.Fatalf("expected sign out to reach the session manager")
	}
}

func TestVendorRoutes(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)
	vendorID := uuid.New()
	token := tokenFor(t, enums.UserRoleVendor, &vendorID)

	if resp := serve(router, http.MethodGet, "/api/v1/vendor/orders", token, ""); resp.Code != http.StatusOK {
		t.Fatalf("vendor orders: expected 200 got %d", resp.Code)
	}
	resp := serve(router, http.MethodPost, "/api/v1/vendor/orders/"+uuid.NewString()+"/status", token, `{"status":"preparing"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("status update: expected 200 got %d", resp.Code)
	}
	resp = serve(router, http.MethodPatch, "/api/v1/vendor/menu/"+uuid.NewString(), token, `{"is_available":false}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("menu update: expected 200 got %d", resp.Code)
	}
}

func TestMetricsEndpointReportsRoutePattern(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)
	serve(router, http.MethodGet, "/api/v1/vendors/"+uuid.NewString()+"/menu", "", "")

	resp := serve(router, http.MethodGet, "/metrics", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `/api/v1/vendors/{vendorId}/menu`) {
		t.Fatalf("expected route pattern label in metrics output")
	}
}
