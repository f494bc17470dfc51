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
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rongwang/expense-tracker-server/internal/api"
	"github.com/rongwang/expense-tracker-server/internal/cache"
	"github.com/rongwang/expense-tracker-server/internal/config"
	"github.com/rongwang/expense-tracker-server/internal/events"
	"github.com/rongwang/expense-tracker-server/internal/metrics"
	"github.com/rongwang/expense-tracker-server/internal/repository"
	"github.com/rongwang/expense-tracker-server/internal/service"
	"github.com/rongwang/expense-tracker-server/internal/utils"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to set up database", zap.Error(err))
	}
	defer db.Close()

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithTokenDuration(cfg.Auth.TokenTTL),
		service.WithBcryptCost(cfg.Auth.BcryptCost),
	}

	// Redis backs the category cache and the auth rate limiter
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = cache.NewRedisClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("redis unavailable, running without cache and rate limiting", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
			opts = append(opts, service.WithCategoryCache(cache.NewRedisCache(rdb, cfg.Redis.CacheTTL, logger)))
		}
	}

	if cfg.AMQP.URL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			logger.Warn("amqp unavailable, transaction events disabled", zap.Error(err))
		} else {
			defer publisher.Close()
			opts = append(opts, service.WithPublisher(publisher))
		}
	}

	// Create repository and service
	repo := repository.NewPostgresRepository(db)
	svc := service.NewDefaultService(repo, cfg.Auth.JWTSecret, opts...)

	if err := api.RegisterValidators(); err != nil {
		logger.Fatal("failed to register validators", zap.Error(err))
	}

	// Create API handler
	handler := api.NewHandler(svc,
		api.WithHandlerLogger(logger),
		api.WithAuthLimiter(api.RateLimiter(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window, cfg.RateLimit.Block, "ratelimit:auth")),
	)

	// Set up Gin router
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestLogger(logger))
	router.Use(metrics.Middleware())
	router.Use(api.JWTSecret(cfg.Auth.JWTSecret))

	// Set up routes
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
