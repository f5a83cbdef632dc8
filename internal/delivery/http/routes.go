package http

import (
	"github.com/gin-gonic/gin"
	"github.com/grocerwatch/backend/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(cfg *config.Config, handler *Handler, registry *prometheus.Registry) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	if registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/search", handler.SearchProducts)
		v1.GET("/specials", handler.CurrentSpecials)
		v1.POST("/reconcile", handler.RunReconciliation)

		products := v1.Group("/products")
		{
			products.GET("", handler.ListProducts)
			products.POST("", handler.AddProduct)
			products.DELETE("/:name", handler.RemoveProduct)
			products.GET("/:name/history", handler.PriceHistory)
		}
	}

	return router
}
