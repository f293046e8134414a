package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cbejar93/astroSocial-sub001/internal/analytics"
	"github.com/cbejar93/astroSocial-sub001/internal/cache"
	"github.com/cbejar93/astroSocial-sub001/internal/config"
	"github.com/cbejar93/astroSocial-sub001/internal/database"
	"github.com/cbejar93/astroSocial-sub001/internal/feed"
	"github.com/cbejar93/astroSocial-sub001/internal/geo"
	"github.com/cbejar93/astroSocial-sub001/internal/handlers"
	"github.com/cbejar93/astroSocial-sub001/internal/interactions"
	"github.com/cbejar93/astroSocial-sub001/internal/logger"
	"github.com/cbejar93/astroSocial-sub001/internal/middleware"
	"github.com/cbejar93/astroSocial-sub001/internal/moderation"
	"github.com/cbejar93/astroSocial-sub001/internal/notify"
	"github.com/cbejar93/astroSocial-sub001/internal/posts"
	"github.com/cbejar93/astroSocial-sub001/internal/scheduler"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	if err := database.Initialize(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Redis backs the ingestion rate limiter; everything else runs without it.
	if cfg.RedisHost != "" {
		redisClient, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			log.Printf("Warning: Redis unavailable, rate limiting disabled: %v", err)
		} else {
			defer redisClient.Close()
		}
	}

	resolver := geo.New(cfg.GeoIPDBPath)

	var checker moderation.Checker = moderation.Disabled{}
	if cfg.ModerationURL != "" {
		checker = moderation.NewHTTPChecker(cfg.ModerationURL, cfg.ModerationAPIKey)
	}

	analyticsService := analytics.NewService(database.DB, resolver, analytics.Options{
		FlushBatchSize: cfg.FlushBatchSize,
		FlushInterval:  cfg.FlushInterval,
		SummaryTTL:     cfg.SummaryTTL,
		RetentionDays:  cfg.RetentionDays,
	})
	analyticsService.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := analyticsService.Stop(ctx); err != nil {
			log.Printf("Warning: final event flush failed: %v", err)
		}
	}()

	feedService := feed.NewService(database.DB)
	notifier := notify.NewDBNotifier(database.DB)
	interactionService := interactions.NewService(database.DB, notifier)
	postService := posts.NewService(database.DB, checker)

	runner := scheduler.NewRunner()
	runner.Register(scheduler.Job{
		Name:     "retention_prune",
		Interval: cfg.PruneInterval,
		Run:      analyticsService.Pruner().Run,
	})
	runner.Register(scheduler.Job{
		Name:     "summary_warm",
		Interval: cfg.WarmInterval,
		Offset:   1 * time.Hour,
		Run: func(ctx context.Context) error {
			analyticsService.Cache().Warm(ctx, cfg.WarmRanges)
			return nil
		},
	})
	runner.Start()
	defer runner.Stop()

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.IdentityMiddleware())
	r.Use(middleware.RequestMetricsMiddleware(database.DB, analyticsService.Cache().Invalidate))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-User-ID"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handlers.NewHandlers(analyticsService, feedService, interactionService, postService)
	api := r.Group("/api/v1")
	api.Use(middleware.RedisRateLimitMiddleware(300, time.Minute))
	h.RegisterRoutes(api)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
}
