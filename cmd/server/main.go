package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoStableSwap/riskgate/internal/config"
	"github.com/GoStableSwap/riskgate/internal/handler"
	"github.com/GoStableSwap/riskgate/internal/middleware"
	"github.com/GoStableSwap/riskgate/internal/oracle"
	"github.com/GoStableSwap/riskgate/internal/pkg/logger"
	"github.com/GoStableSwap/riskgate/internal/repository"
	"github.com/GoStableSwap/riskgate/internal/service"
	"github.com/GoStableSwap/riskgate/internal/stream"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Server.LogLevel)

	// 2. Initialize Persistence
	// Ratings (Postgres > Redis > Memory)
	var ratingRepo service.RatingRepo
	var eventRepos []service.EventRepo
	var redisClient *repository.RedisClient

	if cfg.Redis.Addr != "" {
		redisClient, err = repository.NewRedisClient(cfg)
		if err != nil {
			logger.Error("Failed to connect to Redis, redis-backed features disabled", "error", err)
			redisClient = nil
		} else {
			logger.Info("Connected to Redis")
		}
	}

	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL", "error", err)
		} else {
			logger.Info("Connected to PostgreSQL")
			ratingRepo = repository.NewPostgresRatingRepo(db)
			eventRepos = append(eventRepos, repository.NewPostgresEventRepo(db))
		}
	}
	if ratingRepo == nil && redisClient != nil {
		ratingRepo = repository.NewRedisRatingRepo(redisClient)
	}
	if ratingRepo == nil {
		logger.Warn("No durable store configured, ratings will not survive restarts")
		ratingRepo = service.NewMemoryRatingStore()
	}
	if redisClient != nil {
		eventRepos = append(eventRepos,
			repository.NewRedisEventRepo(redisClient, cfg.Redis.EventsListKey, cfg.Redis.EventsListMax))
	}

	// Idempotency (Redis > Memory)
	var idempotencyStore middleware.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = repository.NewRedisIdempotencyStore(redisClient, cfg.Redis.IdempotencyTTLSeconds)
	} else {
		idempotencyStore = middleware.NewInMemIdempotencyStore()
	}

	// 3. Initialize Core Services
	hub := stream.NewHub()
	go hub.Run()

	eventSvc, err := service.NewEventService(cfg.Events.LogDir, cfg.Events.BufferSize, hub, eventRepos...)
	if err != nil {
		log.Fatalf("Failed to initialize event service: %v", err)
	}

	engine, err := service.NewPolicyEngine(ratingRepo, cfg.Risk, eventSvc)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	anchor, err := oracle.NewECDSAAnchor(cfg.Oracle.Sources)
	if err != nil {
		log.Fatalf("Failed to initialize trust anchor: %v", err)
	}
	registry, err := oracle.NewSourceRegistry(cfg.Oracle.Sources)
	if err != nil {
		log.Fatalf("Failed to initialize source registry: %v", err)
	}
	ingestSvc := service.NewIngestService(
		oracle.NewReportVerifier(anchor), registry, engine, cfg.Oracle.MaxStaleness())

	// 4. Initialize Handlers
	reportHandler := handler.NewReportHandler(ingestSvc)
	policyHandler := handler.NewPolicyHandler(engine)
	eventHandler := handler.NewEventHandler(eventSvc, hub)

	// 5. Setup Router
	r := gin.Default()

	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "riskgate"})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg))
	v1.Use(middleware.RateLimitMiddleware(cfg.RateLimit))
	{
		v1.POST("/reports", middleware.IdempotencyMiddleware(idempotencyStore), reportHandler.IngestReport)
		v1.POST("/swaps/check", policyHandler.CheckSwap)
		v1.GET("/ratings/:asset", policyHandler.GetRating)
		v1.GET("/pairs/:a/:b", policyHandler.GetPairMode)
		v1.GET("/events", eventHandler.ListEvents)
		v1.GET("/events/stream", eventHandler.StreamEvents)

		v1.PUT("/ratings/:asset", middleware.AdminMiddleware(cfg), reportHandler.OverrideRating)
	}

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("riskgate started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
	hub.Stop()
	eventSvc.Close()
}
