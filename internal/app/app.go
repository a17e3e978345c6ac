// Package app wires the storefront's dependencies and runs the HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/shopsphere/storefront/internal/api"
	"github.com/shopsphere/storefront/internal/domain/discount"
	"github.com/shopsphere/storefront/internal/domain/order"
	"github.com/shopsphere/storefront/internal/payment"
	"github.com/shopsphere/storefront/internal/repository"
	"github.com/shopsphere/storefront/pkg/health"
	"github.com/shopsphere/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and the payment
// session reaper, and handles graceful shutdown. It is the single wiring
// point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := repository.NewProductRepository(pool)
	inventoryRepo := repository.NewInventoryRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	discountRepo := repository.NewDiscountRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	orderStore := repository.NewOrderStore(pool)
	engagementRepo := repository.NewEngagementRepository(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)

	// Payment gateway client.
	gateway := payment.NewClient(payment.Config{
		BaseURL:   cfg.Gateway.BaseURL,
		KeyID:     cfg.Gateway.KeyID,
		KeySecret: cfg.Gateway.KeySecret,
	})

	// Domain services.
	discountEngine := discount.NewEngine(discountRepo)
	orderService := order.NewService(
		order.Config{
			CODCities:  cfg.Checkout.CODCities,
			Currency:   cfg.Checkout.Currency,
			SessionTTL: cfg.Checkout.SessionTTL,
		},
		productRepo, cartRepo, discountEngine, userRepo, gateway, sessionRepo, orderStore,
	)

	// Background reaper for expired payment sessions.
	go reapSessions(ctx, lg, orderService, cfg.Checkout.SessionReapInterval)

	// HTTP handlers.
	h := api.NewHandler(productRepo, inventoryRepo, cartRepo, orderRepo, orderService, engagementRepo, apikeyRepo)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins:          cfg.CORS.Origins,
				AllowCredentials: cfg.CORS.AllowCredentials,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-api"),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// reapSessions periodically deletes expired payment sessions until ctx is
// cancelled.
func reapSessions(ctx context.Context, lg *zap.Logger, svc *order.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.ReapSessions(ctx)
			if err != nil {
				lg.Error("Reap payment sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				lg.Info("Reaped expired payment sessions", zap.Int64("count", n))
			}
		}
	}
}
