package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AgriPilot/agripilot-backend/config"
	"github.com/AgriPilot/agripilot-backend/db"
	"github.com/AgriPilot/agripilot-backend/handlers"
	"github.com/AgriPilot/agripilot-backend/internal/fieldmap"
	"github.com/AgriPilot/agripilot-backend/internal/functions"
	"github.com/AgriPilot/agripilot-backend/internal/store/postgres"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/middleware"
	"github.com/AgriPilot/agripilot-backend/models"
	"github.com/AgriPilot/agripilot-backend/router"
	"github.com/AgriPilot/agripilot-backend/services"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Database
	if err := db.RunMigrations(cfg.Database.URL()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL())
	if err != nil {
		log.Fatalf("Failed to parse database config: %v", err)
	}
	if cfg.Server.Environment == config.EnvProduction {
		poolConfig.ConnConfig.TLSConfig = &tls.Config{
			ServerName: cfg.Database.Host,
			MinVersion: tls.VersionTLS12,
		}
	}
	if cfg.Database.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Redis
	redisOptions := &redis.Options{
		Addr:         cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}
	if cfg.Redis.UseTLS {
		redisOptions.TLSConfig = &tls.Config{
			ServerName: cfg.Redis.Address,
			MinVersion: tls.VersionTLS12,
		}
	}
	redisClient := redis.NewClient(redisOptions)
	defer redisClient.Close()

	// Stores
	farmStore := postgres.NewFarmStore(pool)
	documentStore := postgres.NewDocumentStore(pool)
	extractionStore := postgres.NewExtractionStore(pool)
	subsidyStore := postgres.NewSubsidyStore(pool)
	reviewStore := postgres.NewReviewStore(pool)
	pipelineStore := postgres.NewPipelineStore(pool)

	// Services
	storageService, err := services.NewS3StorageService(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	supabaseService, err := services.NewSupabaseService(cfg.Supabase)
	if err != nil {
		log.Fatalf("Failed to initialize Supabase client: %v", err)
	}

	emailService := services.NewEmailService(&cfg.Email)
	rateLimitService := services.NewRateLimitService(redisClient)
	eventService := services.NewRedisEventService(redisClient, cfg.EventService)
	defer eventService.Shutdown()

	functionsClient := functions.NewClient(cfg.Functions.BaseURL, cfg.Functions.APIKey,
		functions.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Functions.TimeoutSeconds) * time.Second,
		}))

	workerPool := services.NewWorkerPool(cfg.WorkerPool)
	workerPool.Start()

	healthService := services.NewHealthService(pool, redisClient, cfg.Server.Version)

	fieldDict, err := fieldmap.LoadProfileFile(cfg.Extraction.FieldmapProfile)
	if err != nil {
		log.Fatalf("Failed to load field mapping profile: %v", err)
	}

	// Models
	farmModel := models.NewFarmModel(farmStore)
	documentModel := models.NewDocumentModel(documentStore, farmModel, storageService, cfg.Storage.MaxUploadBytes)
	extractionModel := models.NewExtractionModel(extractionStore, farmModel, fieldDict, eventService)
	subsidyModel := models.NewSubsidyModel(subsidyStore)
	reviewModel := models.NewReviewModel(reviewStore, extractionModel, supabaseService, emailService, eventService)
	pipelineModel := models.NewPipelineModel(pipelineStore, eventService)

	pipelineService := services.NewPipelineService(
		pipelineModel,
		documentModel,
		subsidyModel,
		extractionStore,
		documentStore,
		subsidyStore,
		storageService,
		functionsClient,
		workerPool,
	)
	exportService := services.NewExportService(farmModel, extractionModel, subsidyModel)

	jwtValidator, err := middleware.NewJWTValidator(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize JWT validator: %v", err)
	}

	r := router.SetupRouter(router.Dependencies{
		Config:            cfg,
		JWTValidator:      jwtValidator,
		RateLimiter:       rateLimitService,
		FarmHandler:       handlers.NewFarmHandler(farmModel),
		DocumentHandler:   handlers.NewDocumentHandler(documentModel),
		ExtractionHandler: handlers.NewExtractionHandler(extractionModel),
		ReviewHandler:     handlers.NewReviewHandler(reviewModel),
		SubsidyHandler:    handlers.NewSubsidyHandler(subsidyModel),
		PipelineHandler:   handlers.NewPipelineHandler(pipelineService, pipelineModel),
		ExportHandler:     handlers.NewExportHandler(exportService),
		ProgressHandler:   handlers.NewProgressHandler(pipelineModel, eventService, &cfg.Server),
		HealthHandler:     handlers.NewHealthHandler(healthService),
		Logger:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server shutdown failed", "error", err)
	}
	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Worker pool shutdown incomplete", "error", err)
	}

	log.Info("Server stopped")
}
