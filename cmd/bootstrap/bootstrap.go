package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wound-analysis-service/config"
	deliveryHttp "wound-analysis-service/internal/delivery/http"
	"wound-analysis-service/internal/delivery/http/handler"
	"wound-analysis-service/internal/delivery/http/middleware"
	"wound-analysis-service/internal/infrastructure/cache"
	"wound-analysis-service/internal/infrastructure/database"
	"wound-analysis-service/internal/infrastructure/inference"
	"wound-analysis-service/internal/infrastructure/storage"
	"wound-analysis-service/internal/repository"
	"wound-analysis-service/internal/service"
	"wound-analysis-service/internal/usecase"
	"wound-analysis-service/pkg/identity"
	"wound-analysis-service/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Store       *storage.BucketStore
	Server      *http.Server
	Cron        *cron.Cron
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Setup logger
	setupLogger()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg
	logrus.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	logrus.Info("Database connected successfully")

	// Run schema migrations
	if err := database.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logrus.Info("Migrations applied successfully")

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	logrus.Info("Redis connected successfully")

	// Initialize object storage
	store, err := storage.NewBucketStore(context.Background(), cfg.Storage, logrus.StandardLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	app.Store = store
	logrus.Info("Object storage initialized successfully")

	// Initialize all layers
	server, sweeper := initializeServer(cfg, db, redisClient, store)
	app.Server = server

	// Schedule the stale-analysis sweep
	app.Cron = cron.New()
	if _, err := app.Cron.AddFunc(cfg.Workflow.SweepSchedule, func() {
		if err := sweeper.SweepStale(context.Background()); err != nil {
			logrus.Warnf("Stale analysis sweep failed: %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule sweep: %w", err)
	}

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)
}

// initializeServer creates and configures the HTTP server
func initializeServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store *storage.BucketStore) (*http.Server, usecase.AnalysisUsecase) {
	// Initialize logger
	log := logrus.StandardLogger()

	// Initialize credential verifier
	verifier := identity.NewTokenVerifier(cfg.Identity.ProjectID, cfg.Identity.CertsURL)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize inference client
	inferenceClient := inference.NewClient(cfg.Inference, log)

	// Initialize repositories
	professionalRepo := repository.NewProfessionalRepository()
	patientRepo := repository.NewPatientRepository()
	analysisRepo := repository.NewAnalysisRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	auditService := service.NewAuditService(db, log, auditLogRepo)
	idempotencyService := service.NewIdempotencyService(redisClient, log, cfg.Workflow.SaveDedupTTL)

	// Initialize usecases
	professionalUsecase := usecase.NewProfessionalUsecase(db, log, customValidator, professionalRepo, auditService)
	patientUsecase := usecase.NewPatientUsecase(db, log, customValidator, cfg.Workflow, patientRepo, analysisRepo, auditService)
	analysisUsecase := usecase.NewAnalysisUsecase(db, log, customValidator, cfg.Workflow, analysisRepo, patientRepo, inferenceClient, store, idempotencyService, auditService)
	auditLogUsecase := usecase.NewAuditLogUsecase(db, log, auditLogRepo)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(inferenceClient)
	professionalHandler := handler.NewProfessionalHandler(professionalUsecase, customValidator)
	patientHandler := handler.NewPatientHandler(patientUsecase, customValidator)
	analysisHandler := handler.NewAnalysisHandler(analysisUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(verifier)
	professionalMiddleware := middleware.NewProfessionalMiddleware(db, log, professionalRepo)
	corsMiddleware := middleware.NewCORSMiddleware()

	// Initialize router
	router := deliveryHttp.NewRouter(healthHandler, professionalHandler, patientHandler, analysisHandler, auditLogHandler, authMiddleware, professionalMiddleware, corsMiddleware)
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: httpRouter,
	}

	return server, analysisUsecase
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	app.Cron.Start()

	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Stop the sweep and let an in-flight run finish
	<-app.Cron.Stop().Done()

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close closes all connections (database, redis, storage)
func (app *App) Close() {
	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}

	// Close storage client
	if app.Store != nil {
		app.Store.Close()
	}
}
