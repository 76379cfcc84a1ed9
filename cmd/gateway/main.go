package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"shop-system/config"
	"shop-system/internal/app"
	"shop-system/internal/gateway"
	"shop-system/internal/gateway/clients"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	checkout, err := clients.NewCheckoutClient("localhost:" + cfg.Server.GRPCPort)
	if err != nil {
		log.Printf("Warning: checkout gRPC service may be unavailable: %v", err)
	}
	defer checkout.Close()

	checks := map[string]gateway.HealthCheck{
		"database": func(ctx context.Context) bool {
			sqlDB, err := a.DB.DB()
			return err == nil && sqlDB.PingContext(ctx) == nil
		},
		"checkout": checkout.IsHealthy,
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) bool {
			return a.Redis.Ping(ctx).Err() == nil
		}
	}

	router, err := gateway.NewRouter(gateway.Services{
		Catalog: a.Catalog,
		Ledger:  a.Ledger,
		POS:     a.POS,
		Reports: a.Reports,
		Notes:   a.Notes,
	}, gateway.Options{
		Auth:      cfg.Auth,
		RateLimit: cfg.App.RateLimit,
		Checks:    checks,
	})
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shut down: %v", err)
	}
}
