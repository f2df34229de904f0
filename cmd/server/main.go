package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appinventory "github.com/ims/backend/internal/application/inventory"
	appsales "github.com/ims/backend/internal/application/sales"
	"github.com/ims/backend/internal/domain/unit"
	"github.com/ims/backend/internal/infrastructure/config"
	"github.com/ims/backend/internal/infrastructure/event"
	"github.com/ims/backend/internal/infrastructure/forecast"
	"github.com/ims/backend/internal/infrastructure/logger"
	"github.com/ims/backend/internal/infrastructure/notification"
	"github.com/ims/backend/internal/infrastructure/persistence"
	"github.com/ims/backend/internal/interfaces/http/handler"
	"github.com/ims/backend/internal/interfaces/http/middleware"
	"github.com/ims/backend/internal/interfaces/http/router"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Inventory Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Redis client for alert broadcasting
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}()

	// Load the unit conversion table. The server refuses to start without
	// it: every quantity written to the ledger depends on these factors.
	units, err := unit.NewRegistry(context.Background(), persistence.NewGormUnitLoader(db.DB))
	if err != nil {
		log.Fatal("Failed to load unit conversions", zap.Error(err))
	}
	log.Info("Unit conversions loaded", zap.Int("units", units.Table().Len()))

	// Transaction scope shared by all application services
	scope := persistence.NewGormTransactionScope(db.DB, cfg.Database.LockTimeout)

	// Initialize application services
	ledgerService := appinventory.NewLedgerService(scope, units)
	inventoryService := appinventory.NewInventoryService(scope, units)
	saleService := appsales.NewSaleService(scope, ledgerService)
	deliveryService := appsales.NewDeliveryService(scope, ledgerService)
	lowStockDetector := appinventory.NewLowStockDetector(scope, units, log)

	// Initialize event bus and alert pipeline
	eventBus := event.NewInMemoryEventBus(log, cfg.Event.BufferSize, cfg.Event.HandlerTimeout)

	var notifier appinventory.StockAlertNotifier
	if cfg.Alerting.BroadcastEnabled {
		notifier = notification.NewRedisStockAlertNotifier(redisClient, cfg.Alerting.BroadcastChannel, log)
		log.Info("Alert broadcasting enabled", zap.String("channel_prefix", cfg.Alerting.BroadcastChannel))
	} else {
		notifier = appinventory.NewLoggingStockAlertNotifier(log)
	}

	alertHandler := appinventory.NewStockAlertHandler(scope, log).WithNotifier(notifier)
	eventBus.Subscribe(alertHandler)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Inject event bus and detector into services that publish events
	ledgerService.SetEventPublisher(eventBus)
	inventoryService.SetEventPublisher(eventBus)
	saleService.SetEventPublisher(eventBus)
	deliveryService.SetEventPublisher(eventBus)
	lowStockDetector.SetEventPublisher(eventBus)
	inventoryService.SetLowStockDetector(lowStockDetector)
	saleService.SetLowStockDetector(lowStockDetector)
	deliveryService.SetLowStockDetector(lowStockDetector)

	// Background expiry scanning
	detectorCtx, stopDetector := context.WithCancel(context.Background())
	defer stopDetector()

	expiryDetector := appinventory.NewExpiryDetector(scope, log, cfg.Alerting.ExpiryWindow, cfg.Alerting.ExpiryScanInterval)
	expiryDetector.SetEventPublisher(eventBus)
	go expiryDetector.Run(detectorCtx)

	// Optional demand forecasting service
	var forecaster forecast.Forecaster
	if cfg.Forecast.Enabled {
		forecaster = forecast.NewHTTPForecaster(cfg.Forecast.BaseURL, cfg.Forecast.Timeout)
		log.Info("Forecast service enabled", zap.String("base_url", cfg.Forecast.BaseURL))
	}

	// Initialize HTTP handlers
	productHandler := handler.NewProductHandler(inventoryService, forecaster)
	saleHandler := handler.NewSaleHandler(saleService)
	deliveryHandler := handler.NewDeliveryHandler(deliveryService)
	alertHTTPHandler := handler.NewAlertHandler(inventoryService)
	unitHandler := handler.NewUnitHandler(units)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Every API route below runs in the context of one branch, identified
	// by the X-Branch-ID header
	branchConfig := middleware.DefaultBranchConfig()
	branchConfig.Logger = log
	r.Use(middleware.BranchMiddlewareWithConfig(branchConfig))

	// Inventory domain (products, stock batches, levels, alerts, units)
	inventoryRoutes := router.NewDomainGroup("inventory", "")
	inventoryRoutes.POST("/products", productHandler.Create)
	inventoryRoutes.GET("/products", productHandler.List)
	inventoryRoutes.GET("/products/:id", productHandler.Get)
	inventoryRoutes.POST("/products/:id/stocks", productHandler.AddStock)
	inventoryRoutes.GET("/products/:id/batches", productHandler.ListBatches)
	inventoryRoutes.GET("/products/:id/forecast", productHandler.Forecast)
	inventoryRoutes.GET("/stock-levels", productHandler.StockLevels)
	inventoryRoutes.GET("/alerts", alertHTTPHandler.List)
	inventoryRoutes.POST("/alerts/:id/acknowledge", alertHTTPHandler.Acknowledge)
	inventoryRoutes.GET("/units", unitHandler.List)
	inventoryRoutes.POST("/units/reload", unitHandler.Reload)

	// Sales domain (sales, deliveries)
	salesRoutes := router.NewDomainGroup("sales", "")
	salesRoutes.POST("/sales", saleHandler.Create)
	salesRoutes.GET("/sales", saleHandler.List)
	salesRoutes.GET("/sales/:id", saleHandler.Get)
	salesRoutes.POST("/sales/:id/cancel", saleHandler.Cancel)
	salesRoutes.POST("/deliveries", deliveryHandler.Create)
	salesRoutes.GET("/deliveries", deliveryHandler.List)
	salesRoutes.GET("/deliveries/:saleId", deliveryHandler.Get)
	salesRoutes.PUT("/deliveries/:saleId/status", deliveryHandler.SetStatus)

	// System routes
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Register all domain groups
	r.Register(inventoryRoutes).
		Register(salesRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopDetector()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
