package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/onurcolak/wa-pairing-service/environments"
	"github.com/onurcolak/wa-pairing-service/handlers"
	"github.com/onurcolak/wa-pairing-service/internal/middlewares"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	pairingHandler *handlers.PairingHandler,
	adminHandler *handlers.AdminHandler,
	limiter *middlewares.RateLimiter,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/api/v1")

	// Pairing routes are rate limited per client on top of the API key.
	pairing := v1.Group("/pairing",
		middlewares.APIKeyAuth("pairing", cfg.Auth.PairingAPIKey),
		limiter.Middleware(),
	)

	pairing.POST("/codes", pairingHandler.GenerateCodes)
	pairing.GET("/status", pairingHandler.GetStatus)
	pairing.GET("/batches", pairingHandler.GetBatches)
	pairing.GET("/batches/stats", pairingHandler.GetStats)
	pairing.GET("/batches/latest/:phone", pairingHandler.GetLatestBatch)

	admin := v1.Group("/admin", middlewares.APIKeyAuth("admin", cfg.Auth.AdminAPIKey))

	admin.POST("/session/reset", adminHandler.ResetSession)
	admin.GET("/session/qr", adminHandler.GetLoginQR)
	admin.POST("/connection/reconnect", adminHandler.Reconnect)

	admin.POST("/maintenance/start", adminHandler.StartMaintenance)
	admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
	admin.GET("/maintenance/status", adminHandler.GetMaintenanceStatus)
}
