package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lending-service/config"
	"lending-service/internal/cache"
	"lending-service/internal/database"
	"lending-service/internal/idempotency"
	"lending-service/internal/logger"
	"lending-service/internal/producer"
	"lending-service/internal/repository"
	"lending-service/internal/router"
	"lending-service/internal/service"
	"lending-service/internal/storage"
	"lending-service/internal/token"
	"lending-service/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)

	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing := tracing.Init(cfg.Tracing.ServiceName, log)

	healthChecks := map[string]router.HealthCheck{}

	var repos *repository.Repository
	if cfg.Storage.Driver == "memory" {
		log.Warn("Using in-memory storage, data is lost on restart")
		repos = repository.NewMemory()
	} else {
		db := database.ConnectDB(&cfg.DB.Config, log)
		defer database.CloseDB(db, log)
		repos = repository.New(db)
	}
	healthChecks["database"] = repos.Ping

	deps := service.Deps{
		Repo: repos,
		Log:  log,
	}

	// ключ в работе держится дольше запроса, но не сутки
	processingTTL := 2 * cfg.App.RequestTimeout
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSeconds)*time.Second, log)
		if err != nil {
			log.Fatal("failed to create redis client", zap.Error(err))
		}
		defer redisClient.Close()
		deps.Cache = redisClient
		deps.Idempotency = idempotency.NewRedis(redisClient.Client(), idempotency.DefaultTTL, processingTTL)
		healthChecks["redis"] = redisClient.Ping
		log.Info("Redis cache enabled")
	} else {
		deps.Idempotency = idempotency.NewMemory(idempotency.DefaultTTL, processingTTL)
		log.Info("Redis cache disabled")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		events := producer.NewReservationProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer events.Close()
		deps.Events = events
		log.Info("Kafka events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		log.Info("Kafka events disabled")
	}

	if cfg.Storage.GCSBucket != "" {
		docs, err := storage.NewGCSDocumentStore(context.Background(), cfg.Storage.GCSBucket, log)
		if err != nil {
			log.Fatal("failed to create document store", zap.Error(err))
		}
		defer docs.Close()
		deps.Documents = docs
	} else {
		log.Info("Document uploads disabled: GCS_BUCKET is not set")
	}

	opts := service.DefaultOptions()
	opts.SuggestionHorizonDays = cfg.Engine.SuggestionHorizonDays
	opts.SuggestionLimit = cfg.Engine.SuggestionLimit
	opts.MaxSuggestions = cfg.Engine.MaxSuggestions
	opts.DefaultMapDays = cfg.Engine.DefaultMapDays
	opts.MaxMapDays = cfg.Engine.MaxMapDays
	opts.MaxRangeDays = cfg.Engine.MaxRangeDays
	opts.Location = cfg.App.Location()
	opts.DocumentPrefix = cfg.Storage.GCSPrefix

	lendingSvc := service.NewLendingService(deps, opts)

	var auditor *service.AuditScheduler
	auditCtx, auditCancel := context.WithCancel(context.Background())
	defer auditCancel()
	if cfg.Audit.Enabled {
		auditor = service.NewAuditScheduler(lendingSvc, log, cfg.Audit.Interval, cfg.Audit.HorizonDays)
		auditor.Start(auditCtx)
	}

	engine := router.Router(router.Deps{
		Service:        lendingSvc,
		Verifier:       token.NewHSVerifier(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience),
		Log:            log,
		CORSOrigins:    cfg.App.CORSOrigins,
		RequestTimeout: cfg.App.RequestTimeout,
		HealthChecks:   healthChecks,
	})

	addr := cfg.App.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down HTTP server...")

	// Останавливаем аудит
	if auditor != nil {
		auditor.Stop()
	}
	auditCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	shutdownTracing(ctx)
	log.Info("HTTP server stopped gracefully")
}
