package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billingapp "github.com/stockbook/backend/internal/application/billing"
	identityapp "github.com/stockbook/backend/internal/application/identity"
	settlementapp "github.com/stockbook/backend/internal/application/settlement"
	uomapp "github.com/stockbook/backend/internal/application/uom"
	"github.com/stockbook/backend/internal/domain/billing"
	"github.com/stockbook/backend/internal/infrastructure/auth"
	"github.com/stockbook/backend/internal/infrastructure/cache"
	"github.com/stockbook/backend/internal/infrastructure/config"
	"github.com/stockbook/backend/internal/infrastructure/event"
	"github.com/stockbook/backend/internal/infrastructure/logger"
	"github.com/stockbook/backend/internal/infrastructure/persistence"
	"github.com/stockbook/backend/internal/interfaces/http/handler"
	"github.com/stockbook/backend/internal/interfaces/http/middleware"
	"github.com/stockbook/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Stockbook Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize Redis and the counterparty lock guarding settlement runs
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()
	counterpartyLock := cache.NewRedisCounterpartyLock(redisClient, cfg.Lock)
	log.Info("Redis connected successfully")

	// Initialize repositories
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	unitRepo := persistence.NewGormUnitRepository(db.DB)
	stockMovementRepo := persistence.NewGormStockMovementRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)

	txManager := persistence.NewGormTransactionManager(db.DB)

	// Initialize event bus with the audit trail handler
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT)

	documentService := billingapp.NewDocumentService(documentRepo, unitRepo, stockMovementRepo, txManager)
	documentService.SetEventPublisher(eventBus)

	settlementService := settlementapp.NewSettlementService(paymentRepo, documentRepo, counterpartyLock, txManager)
	settlementService.SetEventPublisher(eventBus)

	unitService := uomapp.NewUnitService(unitRepo)
	authService := identityapp.NewAuthService(userRepo, jwtService, log)
	userService := identityapp.NewUserService(userRepo)

	// Initialize handlers
	purchaseHandler := handler.NewDocumentHandler(billing.FamilyPurchase, documentService)
	saleHandler := handler.NewDocumentHandler(billing.FamilySale, documentService)
	purchaseReturnHandler := handler.NewDocumentHandler(billing.FamilyPurchaseReturn, documentService)
	saleReturnHandler := handler.NewDocumentHandler(billing.FamilySaleReturn, documentService)
	paymentHandler := handler.NewPaymentHandler(settlementService)
	unitHandler := handler.NewUnitHandler(unitService)
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. CORS - Handle cross-origin requests
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORS())

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/auth/login",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Document routes, one group per family
	for _, h := range []*handler.DocumentHandler{purchaseHandler, saleHandler, purchaseReturnHandler, saleReturnHandler} {
		family := h.Family()
		docRoutes := router.NewDomainGroup(family.String(), "/"+family.Config().Endpoint)
		if family.IsReturn() {
			docRoutes.POST("", h.CreateReturn)
			docRoutes.GET("/returnable-items/:source_id", h.ReturnableItems)
		} else {
			docRoutes.POST("", h.Create)
		}
		docRoutes.GET("", h.List)
		docRoutes.GET("/:id", h.GetByID)
		docRoutes.PUT("/:id", h.Update)
		docRoutes.DELETE("/:id", h.Delete)
		docRoutes.POST("/:id/complete", h.Complete)
		docRoutes.POST("/:id/cancel", h.Cancel)
		docRoutes.POST("/:id/lines", h.AddLine)
		docRoutes.PUT("/:id/lines/:line_id", h.UpdateLine)
		docRoutes.DELETE("/:id/lines/:line_id", h.RemoveLine)
		r.Register(docRoutes)
	}

	// Payment routes
	paymentRoutes := router.NewDomainGroup("payments", "/payments")
	paymentRoutes.POST("", paymentHandler.Apply)
	paymentRoutes.GET("", paymentHandler.List)
	paymentRoutes.GET("/:id", paymentHandler.GetByID)
	paymentRoutes.PUT("/:id", paymentHandler.Update)
	paymentRoutes.DELETE("/:id", paymentHandler.Delete)
	r.Register(paymentRoutes)

	// Unit routes
	unitRoutes := router.NewDomainGroup("units", "/units")
	unitRoutes.POST("", unitHandler.Create)
	unitRoutes.GET("", unitHandler.List)
	unitRoutes.GET("/:id", unitHandler.GetByID)
	unitRoutes.PUT("/:id", unitHandler.Update)
	unitRoutes.DELETE("/:id", unitHandler.Delete)
	r.Register(unitRoutes)

	// Identity routes (login is public via SkipPaths)
	authRoutes := router.NewDomainGroup("auth", "/auth")
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.GET("/me", authHandler.Me)
	authRoutes.PUT("/password", authHandler.ChangePassword)
	r.Register(authRoutes)

	userRoutes := router.NewDomainGroup("users", "/users")
	userRoutes.POST("", userHandler.Create)
	userRoutes.GET("", userHandler.List)
	userRoutes.GET("/:id", userHandler.GetByID)
	userRoutes.POST("/:id/activate", userHandler.Activate)
	userRoutes.POST("/:id/deactivate", userHandler.Deactivate)
	userRoutes.POST("/:id/reset-password", userHandler.ResetPassword)
	r.Register(userRoutes)

	// System routes
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
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
