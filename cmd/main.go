package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"requests-service/internal/config"
	"requests-service/internal/events"
	"requests-service/internal/handlers"
	"requests-service/internal/jobs"
	"requests-service/internal/middleware"
	"requests-service/internal/models"
	"requests-service/internal/repository"
	"requests-service/internal/services"
)

// @title Service Requests API
// @version 1.0.0
// @description Request lifecycle and approval workflow service for technical-service requests

// @contact.name API Support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8094
// @BasePath /api/v1

// @securityDefinitions.bearer BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.AutoMigrate(
		&models.Request{},
		&models.RequestComment{},
		&models.RequestApproval{},
		&models.RequestAttachment{},
		&models.RequestAuditLog{},
		&models.RequestCounter{},
		&models.Notification{},
		&models.User{},
	); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database migrations completed")

	// Initialize repositories
	requestRepo := repository.NewRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize event publisher (optional - service works without NATS)
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.NewPublisher(cfg.NATSURL, "requests-service", logger)
		if err != nil {
			logger.Warnf("Failed to initialize event publisher: %v. Events will not be published.", err)
		} else {
			logger.Info("Event publisher initialized")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := publisher.EnsureStream(ctx); err != nil {
				logger.Warnf("Failed to ensure request stream: %v", err)
			}
		}
	} else {
		logger.Info("NATS_URL not configured, event publishing disabled")
	}

	// Initialize redis cache (optional - used for role membership fan-out)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warnf("Invalid REDIS_URL: %v. Role cache disabled.", err)
		} else {
			redisClient = redis.NewClient(opts)
			logger.Info("Redis role cache initialized")
		}
	}

	// Initialize services
	conflictChecker := services.NewConflictChecker(requestRepo, cfg.Location())
	auditRecorder := services.NewAuditRecorder(requestRepo, logger)
	dispatcher := services.NewNotificationDispatcher(notificationRepo, userRepo, redisClient, logger)
	workflowService := services.NewWorkflowService(requestRepo, userRepo, conflictChecker, auditRecorder, dispatcher, publisher, logger)

	// Initialize handlers
	requestHandler := handlers.NewRequestHandler(workflowService)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)

	// Start reminder job for stale pending requests
	reminderJob := jobs.NewReminderJob(requestRepo, dispatcher, cfg.ReminderInterval, cfg.PendingThreshold, logger)
	jobCtx, jobCancel := context.WithCancel(context.Background())
	reminderJob.Start(jobCtx)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected API routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	api.Use(middleware.TenantMiddleware())

	// Request endpoints
	{
		api.POST("/requests", requestHandler.CreateRequest)
		api.GET("/requests", requestHandler.ListRequests)
		api.GET("/requests/conflicts", requestHandler.CheckConflicts)
		api.GET("/requests/:id", requestHandler.GetRequest)
		api.DELETE("/requests/:id", requestHandler.CancelRequest)
		api.POST("/requests/:id/submit", requestHandler.SubmitRequest)
		api.POST("/requests/:id/approve", requestHandler.ApproveRequest)
		api.POST("/requests/:id/reject", requestHandler.RejectRequest)
		api.POST("/requests/:id/start", requestHandler.StartRequest)
		api.POST("/requests/:id/complete", requestHandler.CompleteRequest)
		api.POST("/requests/:id/comments", requestHandler.AddComment)
		api.POST("/requests/:id/attachments", requestHandler.AddAttachment)
		api.GET("/requests/:id/audit", requestHandler.GetRequestAudit)
	}

	// Notification endpoints
	{
		api.GET("/notifications", notificationHandler.ListNotifications)
		api.POST("/notifications/:id/read", notificationHandler.MarkNotificationRead)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8094"
	}

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infof("Requests service starting on port %s", port)
		if err := router.Run(":" + port); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	logger.Info("Shutting down server...")

	// Stop reminder job
	jobCancel()
	reminderJob.Stop()
	logger.Info("Reminder job stopped")

	// Drain event publisher
	publisher.Close()

	logger.Info("Server shutdown complete")
}
