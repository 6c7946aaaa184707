package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giftnest/checkout-service/internal/address"
	"github.com/giftnest/checkout-service/internal/backend"
	"github.com/giftnest/checkout-service/internal/checkout"
	"github.com/giftnest/checkout-service/internal/config"
	"github.com/giftnest/checkout-service/internal/coupon"
	"github.com/giftnest/checkout-service/internal/handlers"
	"github.com/giftnest/checkout-service/internal/middleware"
	"github.com/giftnest/checkout-service/pkg/logger"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting checkout service",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"backend", cfg.Backend.BaseURL,
		"log_level", cfg.LogLevel,
	)

	// Store backend client: carts, coupons, orders, gateway orders
	client := backend.NewClient(
		cfg.Backend.BaseURL,
		time.Duration(cfg.Backend.Timeout)*time.Second,
		log,
	)

	// Advisory coupon hints. A missing or unloadable hint list degrades
	// the prefilter, never the checkout itself.
	hints := coupon.NewHints(client, log)
	if len(cfg.Coupon.HintFileURLs) > 0 {
		log.Info("loading coupon hint lists...")
		if err := hints.LoadFromURLs(context.Background(), cfg.Coupon.HintFileURLs); err != nil {
			log.Warn("failed to load coupon hint lists", "error", err)
		} else {
			stats := hints.Stats()
			log.Info("coupon hint lists loaded",
				"total_files", stats["total_files"],
				"total_codes", stats["total_codes"],
			)
		}
	}

	// Checkout workflow and handlers
	workflow := checkout.NewWorkflow(client, address.New(), cfg.Checkout.Currency, log)

	// Evict expired sessions so abandoned checkouts do not pile up
	sessionTTL := time.Duration(cfg.Checkout.SessionTTL) * time.Second
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if n := workflow.EvictStale(sessionTTL); n > 0 {
				log.Info("evicted stale checkout sessions", "count", n)
			}
		}
	}()

	healthHandler := handlers.NewHealthHandler(log)
	checkoutHandler := handlers.NewCheckoutHandler(workflow, hints, log)

	// Create router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "api_key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Register health check endpoint
	r.Get("/health", healthHandler.ServeHTTP)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.Auth))

		r.Post("/checkout", checkoutHandler.StartCheckout)
		r.Route("/checkout/{sessionId}", func(r chi.Router) {
			r.Get("/", checkoutHandler.GetSession)
			r.Post("/address", checkoutHandler.SetAddress)
			r.Post("/coupon", checkoutHandler.ApplyCoupon)
			r.Delete("/coupon", checkoutHandler.RemoveCoupon)
			r.Get("/coupon/hints", checkoutHandler.CouponHints)
			r.Post("/submit", checkoutHandler.Submit)
			r.Post("/payment", checkoutHandler.PaymentCallback)
		})
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}
