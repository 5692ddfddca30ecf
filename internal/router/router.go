package router

import (
	"net/http"

	"hookrelay/internal/config"
	"hookrelay/internal/domain/ask"
	"hookrelay/internal/domain/notification"
	"hookrelay/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New creates and configures the Gin router with all middleware and routes.
// askHandler and notificationHandler may be nil when their feature is off.
func New(
	cfg *config.Config,
	rateLimiter *middleware.RateLimiter,
	askHandler *ask.Handler,
	notificationHandler *notification.Handler,
) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()

	// Global middleware stack (order matters)
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))
	r.Use(rateLimiter.Middleware())
	r.Use(middleware.Logger())

	// Public routes
	r.GET("/health", healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected API routes (API key required)
	if notificationHandler != nil && len(cfg.Auth.APIKeys) > 0 {
		protectedAPI := r.Group("/api/v1")
		protectedAPI.Use(middleware.Auth(cfg.Auth.APIKeys))
		{
			notificationHandler.RegisterRoutes(protectedAPI)
		}
	}

	// Answer page and submission are public
	if askHandler != nil {
		askHandler.RegisterRoutes(r)
	}

	return r
}

// healthCheck handles GET /health
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "hookrelay",
	})
}
