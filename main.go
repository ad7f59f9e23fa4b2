package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yyup/kindergarten-service/internal/ai"
	"github.com/yyup/kindergarten-service/internal/auth"
	"github.com/yyup/kindergarten-service/internal/config"
	"github.com/yyup/kindergarten-service/internal/events"
	"github.com/yyup/kindergarten-service/internal/handlers"
	"github.com/yyup/kindergarten-service/internal/repositories/postgres"
	"github.com/yyup/kindergarten-service/internal/services"
	"github.com/yyup/kindergarten-service/internal/tenant"
	"github.com/yyup/kindergarten-service/internal/utils"
	"github.com/yyup/kindergarten-service/internal/validator"
	"github.com/yyup/kindergarten-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.NewLogger(cfg.Environment, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (optional)
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Failed to initialize Redis, caching disabled", "error", err)
		redisClient = nil
	}

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
		Logger:      logger,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}
	repo := repoManager.GetRepository()
	cacheManager := repoManager.Postgres().CacheManager()

	tenants, err := tenant.NewRegistry(cfg.Tenants.Schemas, cfg.Tenants.Default)
	if err != nil {
		log.Fatalf("Invalid tenant configuration: %v", err)
	}

	// Token verifiers: local HS256 first, then Casdoor when configured
	var verifiers auth.ChainVerifier
	if cfg.JWT.Secret != "" {
		verifiers = append(verifiers, auth.NewJWTVerifier(cfg.JWT.Secret, cfg.JWT.Issuer))
	}
	if cfg.Casdoor.Enabled() {
		verifiers = append(verifiers, auth.NewCasdoorVerifier(cfg.Casdoor))
	}
	gate := auth.NewGate(verifiers, tenants, repo.Grants(), logger)

	publisher, err := events.NewPublisherFromConfig(cfg.Kafka, logger)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}

	// A nil *ArkStreamer must not be stored in the interface.
	var streamer services.ChatStreamer
	if ark := ai.NewArkStreamer(cfg.AI); ark != nil {
		streamer = ark
	} else {
		logger.Warn("ARK_API_KEY not set, AI chat streaming disabled")
	}

	// Initialize services
	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:      repo,
		Cache:     cacheManager,
		Streamer:  streamer,
		Publisher: publisher,
		Logger:    logger,
		Validator: validator.New(),
	}, services.ServiceManagerConfig{
		Environment: cfg.Environment,
		UploadDir:   cfg.UploadDir,
		AI:          cfg.AI,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	handlers.SetupMiddleware(router, logger, handlers.MiddlewareConfig{
		RequestTimeout: cfg.RequestTimeout,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	handlers.NewHandlerManager(handlers.HandlerDeps{
		Services:   serviceManager,
		Gate:       gate,
		Metadata:   repo.Metadata(),
		Tenants:    tenants,
		Cache:      cacheManager,
		Logger:     logger,
		Production: cfg.IsProduction(),
	}).SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"tenants", tenants.Schemas())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}
	// Closes the database pool and the redis client.
	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to close connections", "error", err)
	}

	logger.Info("Server exited")
}
