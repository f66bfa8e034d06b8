package main

import (
	"database/sql"
	"flag"
	"log"
	"net/http"
	"time"

	httpapi "github.com/Real-Dev-Squad/website-backend-sub003/internal/api/http"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/cache"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/config"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/logger"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/repository/postgres"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/security"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/service"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting task request API server...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Cache (nil-tolerant; listing degrades to direct reads)
	userCache := cache.New(cfg.Redis.Addr)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret)

	// Initialize Services
	emailSvc := service.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	issueTracker := service.NewGitHubClient(cfg.GitHub.BaseURL, cfg.GitHub.Token)
	taskRequestSvc := service.NewTaskRequestService(
		store.TaskRequestRepository,
		store.TaskRepository,
		store.UserRepository,
		store.ApprovalStore,
		issueTracker,
		emailSvc,
		userCache,
		time.Duration(cfg.Redis.TTLSeconds)*time.Second,
	)
	migrationSvc := service.NewMigrationService(store.TaskRequestRepository, store.TaskRepository, cfg.Migration.BatchSize)

	// Initialize HTTP handlers
	handler := httpapi.NewTaskRequestHandler(taskRequestSvc, migrationSvc, store.AuditLogRepository)
	authMiddleware := httpapi.NewAuthMiddleware(tokenManager)
	operatorMiddleware := httpapi.NewOperatorMiddleware(cfg.Operator.APIKeyHash)

	router := mux.NewRouter()
	httpapi.RegisterRoutes(router, handler, authMiddleware, operatorMiddleware)

	logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
	if err := http.ListenAndServe(cfg.GetServerAddress(), router); err != nil {
		logger.Error("Failed to serve HTTP", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
}
