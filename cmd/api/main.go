package main

import (
	"context"
	"fmt"
	"log"

	_ "expensehub/api/swagger" // swagger docs
	"expensehub/internal/config"
	"expensehub/internal/database"
	"expensehub/internal/handler"
	"expensehub/internal/middleware"
	"expensehub/internal/monitoring"
	"expensehub/internal/repository"
	"expensehub/internal/service"
	"expensehub/internal/websocket"
	"expensehub/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           ExpenseHub API
// @version         1.0
// @description     Expense request and vendor invoice approval workflow API.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}

	zlog, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		OutputPath: cfg.Logger.OutputPath,
	})
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := database.NewConnection(cfg.Database.DSN())
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	zlog.Info("connected to PostgreSQL")

	jwtSecret := []byte(cfg.JWT.Secret)
	accessMaxAge := int(cfg.JWT.AccessTTL.Seconds())
	refreshMaxAge := int(cfg.JWT.RefreshTTL.Seconds())

	// WebSocket hub for workflow event subscriptions
	wsHub := websocket.NewHub(zlog)
	go wsHub.Run()

	// Dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Sweep refresh tokens that expired while the server was down.
	if err := tokenRepo.DeleteExpired(context.Background()); err != nil {
		zlog.Warn("expired token sweep failed", zap.Error(err))
	}

	userService := service.NewUserService(userRepo, tokenRepo, auditRepo, txManager, cfg.JWT, zlog)
	requestService := service.NewRequestService(requestRepo, auditRepo, txManager, wsHub, zlog)
	invoiceService := service.NewInvoiceService(invoiceRepo, sequenceRepo, auditRepo, txManager, wsHub, zlog)
	auditService := service.NewAuditService(auditRepo)

	userHandler := handler.NewUserHandler(userService, jwtSecret, accessMaxAge, refreshMaxAge)
	requestHandler := handler.NewRequestHandler(requestService, jwtSecret)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, jwtSecret)
	auditHandler := handler.NewAuditHandler(auditService, jwtSecret)

	metrics := monitoring.New()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(zlog))
	router.Use(metrics.Middleware())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// Prometheus scrape endpoint
	router.GET("/metrics", monitoring.Handler())

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, jwtSecret)
	})

	// API routing
	userHandler.RegisterRoutes(router.Group(""))
	requestHandler.RegisterRoutes(router.Group(""))
	invoiceHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	zlog.Info("server listening", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zlog.Fatal("server failed", zap.Error(err))
	}
}
