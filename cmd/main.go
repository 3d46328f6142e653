package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"invoice-service/internal/assets"
	"invoice-service/internal/clients"
	"invoice-service/internal/config"
	"invoice-service/internal/events"
	"invoice-service/internal/handlers"
	"invoice-service/internal/middleware"
	"invoice-service/internal/models"
	"invoice-service/internal/renderer"
	"invoice-service/internal/repository"
	"invoice-service/internal/services"

	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/Tesseract-Nexus/go-shared/rbac"
	"github.com/Tesseract-Nexus/go-shared/tracing"
)

// @title Invoice Service API
// @version 1.0
// @description Invoice issuing, content generation and PDF rendering

// @host localhost:8080
// @BasePath /api/v1
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg)

	db, err := initDatabase(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}

	if err := db.AutoMigrate(&models.InvoiceConfig{}, &models.Invoice{}); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	// Redis is optional: without it there is no PDF cache, no content lock and
	// the config cache is bypassed.
	redisClient := initRedis(cfg, logger)

	// Repositories
	invoiceRepo := repository.NewInvoiceRepository(db)
	configRepo := repository.NewInvoiceConfigRepository(db, redisClient)
	pdfCache := repository.NewPDFCache(redisClient, cfg.Invoice.PDFCacheTTL)
	contentLocker := repository.NewContentLocker(redisClient, cfg.Invoice.ContentLockTTL)

	// Clients
	ordersClient := clients.NewOrdersClient(cfg.Services.OrdersServiceURL)
	documentClient := clients.NewDocumentClient(cfg.Services.DocumentServiceURL)

	// NATS events publisher
	var publisher services.InvoiceEventPublisher
	eventsPublisher, err := events.NewPublisher(cfg.App.NATSURL, logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize NATS events publisher, continuing without invoice events")
		eventsPublisher = nil
	} else {
		publisher = eventsPublisher
		logger.Info("NATS events publisher initialized")
	}

	// Tracing
	var tracerProvider *tracing.TracerProvider
	if cfg.IsProduction() {
		tracerProvider, err = tracing.InitTracer(tracing.ProductionConfig("invoice-service"))
	} else {
		tracerProvider, err = tracing.InitTracer(tracing.DefaultConfig("invoice-service"))
	}
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize tracing, continuing without tracing")
	}

	metrics := gosharedmw.InitGlobalMetrics("tesseract", "invoice_service")
	rbacMiddleware := rbac.NewMiddlewareWithURL(cfg.Services.StaffServiceURL, nil)

	// Services
	configService := services.NewInvoiceConfigService(configRepo, logger)
	builder := services.NewInvoiceBuilder(
		assets.NewHTTPResolver(cfg.Invoice.LogoFetchTimeout, cfg.Invoice.LogoMaxBytes),
		logger,
	)
	deps := services.InvoiceServiceDeps{
		Invoices:      invoiceRepo,
		Configs:       configService,
		Orders:        ordersClient,
		Builder:       builder,
		Renderer:      renderer.NewMarotoRenderer(logger.WithField("component", "renderer"), cfg.Invoice.ValidatePDF),
		Cache:         pdfCache,
		Locker:        contentLocker,
		Publisher:     publisher,
		Documents:     documentClient,
		ArchiveBucket: cfg.Invoice.ArchiveBucket,
		Logger:        logger,
	}
	invoiceService := services.NewInvoiceService(deps)

	// Handlers
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService, logger)
	configHandler := handlers.NewInvoiceConfigHandler(configService, logger)
	healthHandler := handlers.NewHealthHandler(pdfCache, configRepo)

	router := setupRouter(cfg, logger, invoiceHandler, configHandler, healthHandler, metrics, rbacMiddleware)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Shutting down invoice service...")

		if eventsPublisher != nil {
			eventsPublisher.Close()
		}

		if tracerProvider != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(ctx); err != nil {
				logger.WithError(err).Error("Error shutting down tracer provider")
			}
		}

		if redisClient != nil {
			_ = redisClient.Close()
		}

		logger.Info("Invoice service stopped")
		os.Exit(0)
	}()

	logger.WithField("address", cfg.GetServerAddress()).Info("Starting invoice service")
	if err := router.Run(cfg.GetServerAddress()); err != nil {
		logger.WithError(err).Fatal("Failed to start server")
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// initDatabase initializes the database connection
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	return db, nil
}

// initRedis connects to Redis, returning nil when it is not configured or unreachable
func initRedis(cfg *config.Config, logger *logrus.Logger) *redis.Client {
	if cfg.App.RedisURL == "" {
		logger.Info("REDIS_URL not configured, caching disabled")
		return nil
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("Failed to parse Redis URL, continuing without Redis")
		return nil
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Failed to connect to Redis, continuing without Redis")
		_ = client.Close()
		return nil
	}

	logger.Info("Connected to Redis")
	return client
}

// setupRouter configures the Gin router with middleware and routes
func setupRouter(
	cfg *config.Config,
	logger *logrus.Logger,
	invoiceHandler *handlers.InvoiceHandler,
	configHandler *handlers.InvoiceConfigHandler,
	healthHandler *handlers.HealthHandler,
	metrics *gosharedmw.Metrics,
	rbacMw *rbac.Middleware,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(gosharedmw.SecurityHeaders())
	router.Use(gosharedmw.RateLimit())
	router.Use(middleware.SetupCORS())
	router.Use(metrics.Middleware())
	router.Use(tracing.GinMiddleware("invoice-service"))

	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/metrics", gosharedmw.Handler())
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api/v1")

	// Istio validates the JWT and injects x-jwt-claim-* headers
	api.Use(gosharedmw.IstioAuth(gosharedmw.IstioAuthConfig{
		RequireAuth:        true,
		AllowLegacyHeaders: false,
		SkipPaths:          []string{"/health", "/ready", "/metrics", "/swagger"},
	}))
	api.Use(middleware.RequireTenantID())
	api.Use(middleware.UserID())
	{
		invoices := api.Group("/invoices")
		{
			invoices.POST("", rbacMw.RequirePermission(rbac.PermissionOrdersUpdate), invoiceHandler.CreateInvoice)
			invoices.GET("/:id", rbacMw.RequirePermission(rbac.PermissionOrdersRead), invoiceHandler.GetInvoice)
			invoices.GET("/:id/content", rbacMw.RequirePermission(rbac.PermissionOrdersRead), invoiceHandler.GetInvoiceContent)
			invoices.GET("/:id/pdf", rbacMw.RequirePermission(rbac.PermissionOrdersRead), invoiceHandler.DownloadInvoicePDF)
			invoices.DELETE("/:id/content", rbacMw.RequirePermission(rbac.PermissionOrdersUpdate), invoiceHandler.ClearInvoiceContent)
		}

		settings := api.Group("/settings")
		{
			settings.GET("/invoice", rbacMw.RequirePermission(rbac.PermissionTaxRead), configHandler.GetConfig)
			settings.PUT("/invoice", rbacMw.RequirePermission(rbac.PermissionTaxManage), configHandler.UpdateConfig)
		}
	}

	return router
}
