// Package gateway assembles the HTTP API.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shop-system/config"
	"shop-system/internal/gateway/handlers"
	"shop-system/internal/gateway/middleware"
	"shop-system/internal/services/catalog"
	"shop-system/internal/services/ledger"
	"shop-system/internal/services/notes"
	"shop-system/internal/services/pos"
	"shop-system/internal/services/reports"
)

type Services struct {
	Catalog *catalog.Service
	Ledger  *ledger.Service
	POS     *pos.Service
	Reports *reports.Service
	Notes   *notes.Service
}

// HealthCheck reports the state of one dependency for /health/detailed.
type HealthCheck func(ctx context.Context) bool

type Options struct {
	Auth      config.AuthConfig
	RateLimit string
	Checks    map[string]HealthCheck
}

func NewRouter(svc Services, opts Options) (*gin.Engine, error) {
	writeLimit, err := middleware.RateLimit(opts.RateLimit)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS())
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	authHandler := handlers.NewAuthHTTPHandler(opts.Auth)
	catalogHandler := handlers.NewCatalogHTTPHandler(svc.Catalog)
	clientHandler := handlers.NewClientHTTPHandler(svc.Ledger)
	checkoutHandler := handlers.NewCheckoutHTTPHandler(svc.POS)
	reportsHandler := handlers.NewReportsHTTPHandler(svc.Reports, svc.Notes)

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}
	}

	var secret []byte
	if opts.Auth.Enabled() {
		secret = []byte(opts.Auth.JWTSecret)
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(secret))
	{
		categories := protected.Group("/categories")
		{
			categories.GET("", catalogHandler.ListCategories)
			categories.POST("", catalogHandler.CreateCategory)
			categories.DELETE("/:id", catalogHandler.DeleteCategory)
		}

		products := protected.Group("/products")
		{
			products.GET("", catalogHandler.ListProducts)
			products.POST("", catalogHandler.CreateProduct)
			products.GET("/search", catalogHandler.SearchProducts)
			products.GET("/:id", catalogHandler.GetProduct)
			products.PUT("/:id", catalogHandler.UpdateProduct)
			products.DELETE("/:id", catalogHandler.DeleteProduct)
			products.POST("/:id/adjust-stock", catalogHandler.AdjustStock)
			products.GET("/:id/movements", catalogHandler.StockMovements)
		}

		clients := protected.Group("/clients")
		{
			clients.GET("", clientHandler.ListClients)
			clients.POST("", clientHandler.CreateClient)
			clients.GET("/search", clientHandler.SearchClients)
			clients.GET("/:id", clientHandler.GetClient)
			clients.PUT("/:id", clientHandler.UpdateClient)
			clients.DELETE("/:id", clientHandler.DeleteClient)
			clients.GET("/:id/statement", clientHandler.Statement)
			clients.POST("/:id/payments", writeLimit, clientHandler.RecordPayment)
		}

		invoices := protected.Group("/invoices")
		{
			invoices.POST("", writeLimit, checkoutHandler.CreateInvoice)
			invoices.GET("", checkoutHandler.ListInvoices)
			invoices.GET("/:id", checkoutHandler.GetInvoice)
		}

		reportsGroup := protected.Group("/reports")
		{
			reportsGroup.GET("/low-stock", reportsHandler.LowStock)
			reportsGroup.GET("/low-stock/export.csv", reportsHandler.ExportLowStockCSV)
			reportsGroup.GET("/low-stock/export.xlsx", reportsHandler.ExportLowStockXLSX)
			reportsGroup.GET("/profit", reportsHandler.Profit)
		}

		protected.GET("/dashboard", reportsHandler.Dashboard)

		notesGroup := protected.Group("/notes")
		{
			notesGroup.GET("", reportsHandler.ListNotes)
			notesGroup.POST("", reportsHandler.CreateNote)
			notesGroup.DELETE("/:id", reportsHandler.DeleteNote)
		}
	}

	r.GET("/health", healthCheckHandler())
	r.GET("/health/detailed", detailedHealthCheckHandler(opts.Checks))

	return r, nil
}

func healthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"message":   "Server is running",
			"timestamp": time.Now(),
		})
	}
}

func detailedHealthCheckHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		overallStatus := "healthy"
		services := make(map[string]interface{}, len(checks))
		for name, check := range checks {
			if check(ctx) {
				services[name] = map[string]interface{}{
					"status":  "healthy",
					"message": "Service is responding",
				}
				continue
			}
			overallStatus = "degraded"
			services[name] = map[string]interface{}{
				"status":  "unavailable",
				"message": "Service not initialized or connection lost",
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"overall_status": overallStatus,
			"services":       services,
			"timestamp":      time.Now(),
		})
	}
}
