package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/onurcolak/wa-pairing-service/environments"
	"github.com/onurcolak/wa-pairing-service/handlers"
	"github.com/onurcolak/wa-pairing-service/internal/allowlist"
	"github.com/onurcolak/wa-pairing-service/internal/connection"
	"github.com/onurcolak/wa-pairing-service/internal/domain"
	"github.com/onurcolak/wa-pairing-service/internal/generator"
	"github.com/onurcolak/wa-pairing-service/internal/middlewares"
	"github.com/onurcolak/wa-pairing-service/internal/repository"
	"github.com/onurcolak/wa-pairing-service/internal/scheduler"
	"github.com/onurcolak/wa-pairing-service/internal/service"
	"github.com/onurcolak/wa-pairing-service/internal/storage"
	"github.com/onurcolak/wa-pairing-service/pkg/cache"
	"github.com/onurcolak/wa-pairing-service/pkg/database"
	"github.com/onurcolak/wa-pairing-service/pkg/logger"
	"github.com/onurcolak/wa-pairing-service/pkg/redis"
	"github.com/onurcolak/wa-pairing-service/pkg/validator"
	"github.com/onurcolak/wa-pairing-service/pkg/webhook"
	"github.com/onurcolak/wa-pairing-service/pkg/whatsapp"
	"github.com/onurcolak/wa-pairing-service/routes"
)

const memoryCacheSize = 1024

type cacheBackend interface {
	CacheLatestBatch(ctx context.Context, batch *domain.CodeBatch) error
	GetLatestBatch(ctx context.Context, phone string) (*domain.CodeBatch, error)
	Ping(ctx context.Context) error
	Close() error
}

type alertSender interface {
	SendAlert(ctx context.Context, alert domain.Alert) error
}

// openCache prefers Redis and falls back to an in-process LRU.
func openCache(cfg *environments.Config) (cacheBackend, string) {
	if cfg.Redis.Enabled {
		client, err := redis.NewRedisClient(cfg.Redis, cfg.Pairing.CodeTTL)
		if err == nil {
			return client, "redis"
		}
		logger.Warnf("Redis not available, using in-memory cache: %v", err)
	}
	return cache.NewMemory(memoryCacheSize, cfg.Pairing.CodeTTL), "memory"
}

func runServe(cfg *environments.Config) error {
	// Hard-fail if required secrets are missing
	if cfg.Auth.PairingAPIKey == "" {
		logger.Fatalf("PAIRING_API_KEY is required but not set")
	}
	if cfg.Auth.AdminAPIKey == "" {
		logger.Fatalf("ADMIN_API_KEY is required but not set")
	}

	logger.Infof("Starting WhatsApp pairing service...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Provider connection
	sessions, err := whatsapp.OpenSessionStore(ctx, cfg.Connection.SessionDir)
	if err != nil {
		logger.Fatalf("Failed to open session store: %v", err)
	}
	manager := connection.NewManager(
		whatsapp.NewDialer(sessions, cfg.Pairing.ClientDisplayName),
		sessions,
		connection.PolicyFromConfig(cfg.Connection),
	)

	persister, err := storage.NewPersister(cfg.Pairing.OutputDir)
	if err != nil {
		logger.Fatalf("Failed to prepare output dir: %v", err)
	}

	// Init DB
	db, err := database.NewDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	batchRepo := repository.NewBatchRepository(db)
	batchCache, cacheKind := openCache(cfg)
	logger.Infof("Latest-batch cache: %s", cacheKind)

	webhookClient := webhook.NewWebhookClient(cfg.Webhook)

	allowList, err := allowlist.New(cfg.AllowList.File)
	if err != nil {
		logger.Fatalf("Failed to load allow-list: %v", err)
	}

	deps := service.Dependencies{
		Generator:  generator.NewGenerator(manager, cfg.Pairing),
		Connection: manager,
		Persister:  persister,
		Repository: batchRepo,
		Cache:      batchCache,
		Rotator:    manager,
	}

	var alerts alertSender
	if webhookClient.Enabled() {
		logger.Infof("Webhook configured: %s", webhookClient.GetURL())
		deps.Notifier = webhookClient
		alerts = webhookClient
	}

	if allowList.Enabled() {
		if err := allowList.Watch(); err != nil {
			logger.Warnf("Allow-list hot reload disabled: %v", err)
		}
		deps.AllowList = allowList
	}

	pairingService := service.NewPairingService(deps, cfg.Pairing)
	pairingService.Start(ctx)
	manager.Start(ctx)

	sched := scheduler.NewScheduler(
		pairingService,
		manager,
		alerts,
		cfg.Maintenance.Interval,
		cfg.Maintenance.AlertNotReadyTick,
	)

	if cfg.Maintenance.AutoStart {
		logger.Infof("Auto-starting maintenance scheduler...")
		if err := sched.Start(ctx); err != nil {
			logger.Warnf("Failed to auto-start scheduler: %v", err)
		}
	}

	limiter := middlewares.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(batchRepo, batchCache, cacheKind, manager)
	pairingHandler := handlers.NewPairingHandler(pairingService, manager)
	adminHandler := handlers.NewAdminHandler(manager, sched, ctx, cfg)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			middlewares.APIKeyHeader,
		},
	}))

	routes.RegisterRoutes(e, healthHandler, pairingHandler, adminHandler, limiter, cfg)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	if sched.IsRunning() {
		shutdownStep("Scheduler", 5*time.Second, sched.Stop)
	}

	// Pending requests are rejected so their HTTP handlers can return.
	shutdownStep("Request queue", 30*time.Second, func() error {
		pairingService.Stop()
		return nil
	})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	cancel()
	manager.Stop()
	limiter.Stop()
	allowList.Stop()

	if err := sessions.Close(); err != nil {
		logger.Errorf("Error closing session store: %v", err)
	}

	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	if err := batchCache.Close(); err != nil {
		logger.Errorf("Error closing cache: %v", err)
	}

	logger.Infof("Graceful shutdown completed")
	return nil
}
