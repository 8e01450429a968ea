package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/escrowd/internal/metrics"
	"github.com/guttosm/escrowd/internal/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const requestTimeout = 10 * time.Second

// NewRouter creates a Gin engine with routes configured.
//
// Responsibilities:
//   - Registers global middlewares (RequestID, Logger, Recovery, ErrorHandler, RateLimiter, Metrics).
//   - Adds request timeout handling (10 seconds).
//   - Mounts Swagger docs (/swagger/*any) and Prometheus metrics (/metrics).
//   - Configures authenticated API v1 routes (/api/v1) and the admin group.
//
// Note:
//   - Health and readiness endpoints (/healthz, /readyz) are registered in app.InitializeApp().
func NewRouter(handler *Handler, tokens middleware.TokenValidator) *gin.Engine {
	router := gin.New()

	// ─── Middlewares ───────────────────────────────
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.ErrorHandler,
		middleware.RateLimiter(),
		middleware.Metrics(),
	)

	// ─── Timeout ──────────────────────────────────
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// ─── Swagger & metrics ────────────────────────
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// ─── API v1 ───────────────────────────────────
	v1 := router.Group("/api/v1", middleware.Auth(tokens))
	{
		v1.POST("/trades", handler.OpenTrade)
		v1.GET("/trades", handler.ListTrades)
		v1.GET("/trades/:id", handler.GetTrade)
		v1.POST("/trades/:id/settle", handler.SettleTrade)
		v1.DELETE("/trades/:id", handler.CancelTrade)
		v1.GET("/balances", handler.GetBalances)

		admin := v1.Group("/admin", middleware.RequireAdmin())
		admin.POST("/accounts", handler.CreateAccount)
	}

	return router
}
