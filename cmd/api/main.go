package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/roomezes/roomezes-backend/api/controllers"
	"github.com/roomezes/roomezes-backend/api/routes"
	"github.com/roomezes/roomezes-backend/internal/cart"
	"github.com/roomezes/roomezes-backend/internal/checkout"
	"github.com/roomezes/roomezes-backend/internal/menu"
	"github.com/roomezes/roomezes-backend/internal/notifications"
	"github.com/roomezes/roomezes-backend/internal/orders"
	"github.com/roomezes/roomezes-backend/internal/vendors"
	"github.com/roomezes/roomezes-backend/pkg/auth/session"
	"github.com/roomezes/roomezes-backend/pkg/config"
	"github.com/roomezes/roomezes-backend/pkg/db"
	"github.com/roomezes/roomezes-backend/pkg/enums"
	"github.com/roomezes/roomezes-backend/pkg/instance"
	"github.com/roomezes/roomezes-backend/pkg/logger"
	"github.com/roomezes/roomezes-backend/pkg/metrics"
	"github.com/roomezes/roomezes-backend/pkg/migrate"
	"github.com/roomezes/roomezes-backend/pkg/razorpay"
	"github.com/roomezes/roomezes-backend/pkg/redis"
	"github.com/roomezes/roomezes-backend/pkg/sendgrid"
	"github.com/roomezes/roomezes-backend/pkg/tracing"
	"github.com/roomezes/roomezes-backend/pkg/twilio"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, "roomezes-api", version)
	if err != nil {
		logg.Error(ctx, "failed to initialise tracing", err)
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.Auth, logg)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	gateway, err := razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret,
		razorpay.WithBaseURL(cfg.Razorpay.BaseURL),
		razorpay.WithTimeout(cfg.Razorpay.Timeout),
	)
	if err != nil {
		logg.Error(ctx, "failed to create razorpay client", err)
		os.Exit(1)
	}

	// Unconfigured channels stay nil interfaces so the hooks fall back to logging.
	var sms notifications.SMSSender
	if cfg.Twilio.Configured() {
		client, err := twilio.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From,
			twilio.WithBaseURL(cfg.Twilio.BaseURL),
			twilio.WithTimeout(cfg.Twilio.Timeout),
		)
		if err != nil {
			logg.Error(ctx, "failed to create twilio client", err)
			os.Exit(1)
		}
		sms = client
	} else {
		logg.Warn(ctx, "twilio not configured, vendor notifications will be logged only")
	}

	var mailer notifications.Mailer
	if cfg.Sendgrid.Configured() {
		client, err := sendgrid.NewClient(cfg.Sendgrid.APIKey, cfg.Sendgrid.DefaultFrom,
			sendgrid.WithBaseURL(cfg.Sendgrid.BaseURL),
			sendgrid.WithTimeout(cfg.Sendgrid.Timeout),
		)
		if err != nil {
			logg.Error(ctx, "failed to create sendgrid client", err)
			os.Exit(1)
		}
		mailer = client
	}

	vendorRepo := vendors.NewRepository(dbClient.DB())

	menuService, err := menu.NewService(menu.NewRepository(dbClient.DB()), vendorRepo)
	if err != nil {
		logg.Error(ctx, "failed to create menu service", err)
		os.Exit(1)
	}

	cartStore, err := cart.NewStore(redisClient, cfg.Checkout.CartTTL)
	if err != nil {
		logg.Error(ctx, "failed to create cart store", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(cartStore, menuService)
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	hooks := checkout.NewRunner(logg, cfg.Checkout.HookTimeout,
		notifications.NewVendorDispatcher(sms, checkoutMetrics, logg),
		notifications.NewReceiptMailer(mailer, checkoutMetrics, logg),
	)

	orchestrator, err := checkout.NewOrchestrator(checkout.Deps{
		Carts:    cartService,
		Gateway:  gateway,
		Orders:   ordersService,
		Vendors:  vendorRepo,
		Hooks:    hooks,
		Metrics:  checkoutMetrics,
		Tracer:   tracing.Tracer("roomezes/checkout"),
		Logger:   logg,
		Currency: enums.Currency(cfg.Checkout.Currency),
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout orchestrator", err)
		os.Exit(1)
	}

	attempts := checkout.NewAttempts(orchestrator, cfg.Checkout.PaymentWindow, checkoutMetrics, logg)
	unsubscribe := attempts.SubscribeTo(sessionManager)
	defer unsubscribe()

	router := routes.NewRouter(routes.Deps{
		Config: cfg,
		Logger: logg,
		Pingers: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Sessions:    sessionManager,
		Idempotency: redisClient,
		RateLimiter: redisClient,
		HTTPMetrics: httpMetrics,
		Gatherer:    registry,
		Cart:        cartService,
		Checkout:    attempts,
		Orders:      ordersService,
		Menu:        menuService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"version":  version,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(router, "roomezes-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(serverCtx, "http server shutdown", err)
	}
	if err := attempts.Shutdown(shutdownCtx); err != nil {
		logg.WarnErr(serverCtx, "checkout attempts did not drain", err)
	}
	if err := hooks.Wait(shutdownCtx); err != nil {
		logg.WarnErr(serverCtx, "notification hooks did not drain", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logg.WarnErr(serverCtx, "tracing shutdown", err)
	}
	logg.Info(serverCtx, "api server stopped")
}
