package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"marketchat/internal/config"
	"marketchat/internal/infrastructure/database"
	queueAdapter "marketchat/internal/infrastructure/queue/adapter"
	"marketchat/internal/infrastructure/realtime"
	"marketchat/internal/pkg/chat/application/task"
)

// Standalone queue worker. Persisted sends are published to the shared redis
// channel so API nodes fan them out to their websocket sessions.
func main() {
	cfg := config.Load()

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	if cfg.RedisURL == "" {
		logger.Fatal().Msg("REDIS_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	pool, err := database.Connect(connectCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()

	publisher, err := realtime.NewRedisPublisher(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis publisher failed")
	}
	defer func() { _ = publisher.Close() }()

	srv, err := queueAdapter.NewAsynqServer(cfg.RedisURL, cfg.AsynqConcurrency, cfg.AsynqQueues, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("queue server failed")
	}
	task.RegisterSendMessageTask(srv, pool, publisher)

	logger.Info().Int("concurrency", cfg.AsynqConcurrency).Msg("starting marketchat worker")
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
	logger.Info().Msg("worker stopped")
}
