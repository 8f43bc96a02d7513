package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richxcame/carbon-ledger/internal/fraud"
	"github.com/richxcame/carbon-ledger/pkg/common"
	"github.com/richxcame/carbon-ledger/pkg/config"
	"github.com/richxcame/carbon-ledger/pkg/database"
	"github.com/richxcame/carbon-ledger/pkg/health"
	"github.com/richxcame/carbon-ledger/pkg/logger"
	"github.com/richxcame/carbon-ledger/pkg/middleware"
	"github.com/richxcame/carbon-ledger/pkg/redis"
	"github.com/richxcame/carbon-ledger/pkg/validation"
	"go.uber.org/zap"
)

const (
	serviceName = "fraud"
	version     = "1.0.0"

	maxBodyBytes    = 64 << 10
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		// logger is not configured yet; fall back to the default one
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		logger.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync()

	policy, err := fraud.PolicyFromConfig(cfg.Fraud)
	if err != nil {
		logger.Fatal("Invalid fraud policy", zap.Error(err))
	}

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	logger.Info("Connected to PostgreSQL database", zap.String("host", cfg.Database.Host))

	checks := map[string]common.HealthCheck{
		"database": health.DatabaseChecker(db),
	}

	var repo fraud.RepositoryInterface = fraud.NewRepository(db)
	if cfg.Redis.Enabled() {
		cache, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer cache.Close()
		logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.RedisAddr()))

		repo = fraud.NewCachedRepository(repo, cache, time.Duration(cfg.Redis.StatsTTLSeconds)*time.Second)
		checks["redis"] = health.RedisChecker(cache.Client)
	}

	service := fraud.NewService(repo, policy)
	handler := fraud.NewHandler(service)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validation.ConfigureGinBinding()

	router := gin.New()
	router.Use(
		middleware.Recovery(),
		middleware.CorrelationID(),
		middleware.RequestLogger(),
		middleware.Metrics(serviceName),
		middleware.SecurityHeaders(),
		middleware.MaxBodySize(maxBodyBytes),
		middleware.ValidateJSONContentType(),
	)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins()
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.CorrelationIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.CorrelationIDHeader, fraud.PersistedHeader}
	router.Use(cors.New(corsConfig))

	// Health check and metrics (no auth required)
	router.GET("/healthz", common.HealthCheckWithDeps(serviceName, version, checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.RegisterRoutes(router, cfg.JWT.Secret)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Fraud service starting", zap.String("port", cfg.Server.Port), zap.Float64("fraud_threshold", policy.FraudThreshold()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down fraud service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
