package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"caption-llm/internal/config"
	"caption-llm/internal/db"
	apihttp "caption-llm/internal/http"
	"caption-llm/internal/llm"
	"caption-llm/internal/repository"
	"caption-llm/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	checks := map[string]apihttp.HealthCheck{}

	var captionLogs repository.CaptionLogRepository
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("db pool init failed, caption log disabled", zap.Error(err))
		} else {
			defer pool.Close()
			captionLogs = repository.NewPgCaptionLogRepository(pool)
			checks["database"] = func(ctx context.Context) error { return db.Ping(ctx, pool) }
			logPingFailure(ctx, logger, pool)
		}
	}

	var (
		limiter        service.RateLimiter
		limiterBackend = "memory"
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory rate limiter", zap.Error(err))
		} else {
			limiter = service.NewRedisRateLimiter(redisClient, cfg.RateLimitWindow, cfg.RateLimitMax)
			limiterBackend = "redis"
			checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
		cancel()
	}
	if limiter == nil {
		limiter = service.NewMemoryRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax)
	}

	httpClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.ModerationModel, cfg.LLMTimeout, logger)
	var completer llm.Completer = httpClient
	if cfg.LLMAPIStyle == config.APIStyleChat {
		completer = llm.NewChatClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)
	}
	if !completer.Configured() {
		logger.Warn("llm api key not configured; caption requests will fail")
	}

	captionSvc := service.NewCaptionService(logger, limiter, completer, httpClient, captionLogs, service.CaptionOptions{
		Model:          cfg.LLMModel,
		MaxInputLength: cfg.MaxInputLength,
	})
	captionHandler := apihttp.NewCaptionHandler(logger, captionSvc)
	healthHandler := apihttp.NewHealthHandler(limiterBackend, checks)
	router := apihttp.NewRouter(logger, cfg.CORSAllowOrigins, captionHandler, healthHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("rate_limiter", limiterBackend),
		zap.String("api_style", cfg.LLMAPIStyle),
		zap.String("model", cfg.LLMModel),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

func logPingFailure(ctx context.Context, logger *zap.Logger, pool *pgxpool.Pool) {
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.Ping(ctxPing, pool); err != nil {
		logger.Warn("db ping failed", zap.Error(err))
	}
}
