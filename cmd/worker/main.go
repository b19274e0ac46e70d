package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rollcall/internal/cloudinary"
	"rollcall/internal/config"
	"rollcall/internal/ocr"
	"rollcall/internal/queue"
	"rollcall/internal/registration"
	"rollcall/internal/roster"
	"rollcall/internal/store"
)

// Worker consumes registration jobs: OCR the card image, normalize the
// guess, render the code image, host both images, append to the roster.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	var blob store.Blob
	var redisClient *store.RedisBlob
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres connect failed", zap.Error(err))
		}
		defer pg.Close()
		blob = pg
	case "memory":
		logger.Fatal("worker needs a durable store backend, not memory")
	default:
		redisClient = store.NewRedis(cfg.RedisAddr)
		blob = redisClient
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		logger.Fatal("worker needs the redis queue backend to see api jobs")
	} else {
		if redisClient == nil {
			redisClient = store.NewRedis(cfg.RedisAddr)
		}
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:registrations")
	}

	students, err := roster.New(ctx, blob, logger.Named("roster"))
	if err != nil {
		logger.Fatal("roster load failed", zap.Error(err))
	}

	ocrClient := ocr.New(cfg.OCRServiceURL, cfg.OCRSkip)
	if !cfg.OCRSkip {
		if err := ocrClient.Health(ctx); err != nil {
			logger.Warn("ocr service not available, will retry per job", zap.Error(err))
		} else {
			logger.Info("ocr service connected")
		}
	}

	var uploader registration.Uploader
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		uploader = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	}
	registrar := registration.New(students, ocrClient, uploader, logger.Named("registration"))

	logger.Info("worker started, waiting for registrations")
	if err := registration.Consume(ctx, q, registrar, logger.Named("registration")); err != nil {
		logger.Fatal("queue consume failed", zap.Error(err))
	}

	logger.Info("worker stopped")
}

func newLogger(cfg config.App) *zap.Logger {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(strings.ToLower(cfg.LogLevel))); err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var zcfg zap.Config
	if cfg.Env == "production" || cfg.Env == "prod" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = lvl
	return zap.Must(zcfg.Build())
}
