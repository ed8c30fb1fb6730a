package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/user/paywatch/internal/api"
	"github.com/user/paywatch/internal/config"
	"github.com/user/paywatch/internal/dedupe"
	"github.com/user/paywatch/internal/fanout"
	"github.com/user/paywatch/internal/logbuf"
	"github.com/user/paywatch/internal/monitoring"
	"github.com/user/paywatch/internal/notifier"
	"github.com/user/paywatch/internal/recorder"
)

func main() {
	// Initialize structured logger, teed into the in-memory buffer that
	// backs GET /logs
	buffer := logbuf.New(logbuf.DefaultCapacity)
	encoderCfg := zap.NewProductionEncoderConfig()
	stdoutCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		zapcore.InfoLevel,
	)
	logger := zap.New(zapcore.NewTee(stdoutCore, buffer.Core(zapcore.InfoLevel)))
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	// Dedupe store: Redis when configured, process-local otherwise
	var dedupeStore dedupe.Store
	if cfg.RedisAddr != "" {
		redisStore := dedupe.NewRedisStore(cfg.RedisAddr)
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisStore.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancel()
		dedupeStore = redisStore
	} else {
		logger.Info("REDIS_ADDR not set, using in-memory dedupe")
		dedupeStore = dedupe.NewMemoryStore()
	}

	// Downstream collaborators
	rec := recorder.NewAirtable(recorder.Config{
		APIKey:  cfg.AirtableAPIKey,
		BaseID:  cfg.AirtableBaseID,
		Table:   cfg.AirtableTable,
		Timeout: cfg.HTTPClientTimeout(),
	}, logger)
	not := notifier.NewSMTP(notifier.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.AlertFrom,
		To:       cfg.AlertTo,
	}, logger)

	metrics := monitoring.NewMetrics()
	dispatcher := fanout.NewDispatcher(rec, not, metrics, logger)

	// Initialize API Server
	server := api.NewServer(cfg, dispatcher, dedupeStore, buffer, metrics, logger)

	// Graceful Shutdown
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
