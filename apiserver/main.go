package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	"golang.org/x/time/rate"

	"bnpl-checkout/cart"
	"bnpl-checkout/config"
	"bnpl-checkout/handlers"
	"bnpl-checkout/logger"
	"bnpl-checkout/order"
	"bnpl-checkout/resume"
	"bnpl-checkout/services"
	"bnpl-checkout/storage"
)

const notificationTTL = 30 * time.Second

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	logger.L.Info("Checkout API server starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.L.Info("Initializing database...", "path", cfg.DatabasePath)
	db, err := storage.Open(ctx, cfg.DatabasePath)
	if err != nil {
		logger.L.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := storage.Migrate(db); err != nil {
		logger.L.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}

	c, err := client.Dial(cfg.ClientOptions())
	if err != nil {
		logger.L.Error("Unable to create Temporal client", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	httpClient := &http.Client{Timeout: 10 * time.Second}
	backend := services.NewBackendClient(cfg.BackendBaseURL, cfg.BackendAPIKey, httpClient)

	feed := cart.NewFeed(notificationTTL)
	carts := cart.NewStore(storage.NewCartRepository(db), feed)
	orderHandler := handlers.NewOrderHandler(carts, order.NewStore(), storage.NewOrderRepository(db))

	router := handlers.NewRouter(handlers.Dependencies{
		Carts:  handlers.NewCartHandler(carts, feed),
		Orders: orderHandler,
		Lookups: handlers.NewLookupHandler(
			services.NewPriceService(cfg.PriceSpotURL, cfg.PriceCacheTTL, httpClient),
			services.NewBalanceService(backend, cfg.BalanceCacheTTL),
		),
		Checkout: handlers.NewCheckoutHandler(
			handlers.NewTemporalFlows(c),
			orderHandler,
			resume.NewSigner(cfg.ResumeSecret),
			cfg.APIBaseURL,
			cfg.AppBaseURL,
		),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L.Error("Server shutdown failed", "error", err)
		}
	}()

	logger.L.Info("Server starting", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.L.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
	logger.L.Info("Server stopped")
}
