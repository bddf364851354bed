package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roomezes/roomezes-backend/api/controllers"
	"github.com/roomezes/roomezes-backend/api/middleware"
	"github.com/roomezes/roomezes-backend/pkg/auth/session"
	"github.com/roomezes/roomezes-backend/pkg/config"
	"github.com/roomezes/roomezes-backend/pkg/enums"
	"github.com/roomezes/roomezes-backend/pkg/logger"
	"github.com/roomezes/roomezes-backend/pkg/metrics"
	pkgredis "github.com/roomezes/roomezes-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	SignOut(ctx context.Context, sc session.Context) error
}

// Deps carries everything the HTTP surface is built from. Nil stores disable the middleware
// that needs them.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Pingers     map[string]controllers.Pinger
	Sessions    sessionManager
	Idempotency pkgredis.IdempotencyStore
	RateLimiter pkgredis.RateLimiter
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer

	Cart     controllers.CartService
	Checkout controllers.CheckoutService
	Orders   controllers.OrdersService
	Menu     controllers.MenuService
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.Pingers, logg))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/api/v1/vendors/{vendorId}/menu", controllers.VendorMenu(d.Menu, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth, d.Sessions, logg))
		r.Use(middleware.Idempotency(d.Idempotency, logg))

		r.Post("/auth/logout", controllers.AuthLogout(d.Sessions, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(d.Cart, logg))
			r.Delete("/", controllers.CartClear(d.Cart, logg))
			r.Post("/items", controllers.CartAddItem(d.Cart, logg))
			r.Patch("/items/{itemId}", controllers.CartSetQuantity(d.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(d.Cart, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.With(middleware.RateLimit("checkout_begin", cfg.Checkout.BeginLimit, cfg.Checkout.BeginWindow, d.RateLimiter, logg)).
				Post("/", controllers.CheckoutBegin(d.Checkout, logg))
			r.Post("/verify", controllers.CheckoutVerify(d.Checkout, logg))
			r.Post("/cancel", controllers.CheckoutCancel(d.Checkout, logg))
			r.Post("/failure", controllers.CheckoutFailure(d.Checkout, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(d.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(d.Orders, logg))
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleVendor, enums.UserRoleAdmin))
			r.Get("/orders", controllers.VendorOrderList(d.Orders, logg))
			r.Post("/orders/{orderId}/status", controllers.VendorOrderUpdateStatus(d.Orders, logg))
			r.Patch("/menu/{itemId}", controllers.VendorMenuUpdate(d.Menu, logg))
		})
	})

	return r
}
