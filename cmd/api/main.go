package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	v1 "marketchat/cmd/api/router/v1"
	"marketchat/internal/auth"
	cacheAdapter "marketchat/internal/infrastructure/cache/adapter"
	cacheport "marketchat/internal/infrastructure/cache/port"
	"marketchat/internal/config"
	"marketchat/internal/infrastructure/database"
	queueAdapter "marketchat/internal/infrastructure/queue/adapter"
	qport "marketchat/internal/infrastructure/queue/port"
	"marketchat/internal/infrastructure/realtime"
	"marketchat/internal/middleware"
	"marketchat/internal/pkg/chat/application/task"
	"marketchat/internal/pkg/chat/application/usecase"
	httpHandler "marketchat/internal/pkg/chat/presentation/http"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	pool, err := database.Connect(connectCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = database.Migrate(migrateCtx, pool)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
	logger.Info().Msg("connected to PostgreSQL")

	// Cache: redis when configured, in-process otherwise.
	var cache cacheport.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cacheAdapter.NewRedisAdapter(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		cache = redisCache
		logger.Info().Msg("connected to Redis")
	} else {
		cache = cacheAdapter.NewMemoryCache()
		logger.Warn().Msg("REDIS_URL not set, using in-process cache")
	}
	defer func() { _ = cache.Close() }()

	hub := realtime.NewHub()
	defer hub.Close()

	// With redis, sends publish to the shared channel and the bridge replays
	// them into the local hub, so every API node sees every insert. Without
	// redis the hub is the publisher and fan-out stays node-local.
	var publisher usecase.MessagePublisher = hub
	if cfg.RedisURL != "" {
		redisPub, err := realtime.NewRedisPublisher(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis publisher failed")
		}
		defer func() { _ = redisPub.Close() }()
		publisher = redisPub

		bridge, err := realtime.NewBridge(cfg.RedisURL, hub, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis bridge failed")
		}
		defer func() { _ = bridge.Close() }()
		go func() {
			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("realtime bridge stopped")
			}
		}()
	}

	// Queue: enqueue client plus an embedded worker loop so queued sends are
	// picked up when the API runs without a dedicated worker process.
	var queueClient qport.Client
	if cfg.RedisURL != "" {
		client, err := queueAdapter.NewAsynqClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("queue client failed")
		}
		defer func() { _ = client.Close() }()
		queueClient = client

		srv, err := queueAdapter.NewAsynqServer(cfg.RedisURL, cfg.AsynqConcurrency, cfg.AsynqQueues, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("queue server failed")
		}
		task.RegisterSendMessageTask(srv, pool, publisher)
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("queue server stopped")
			}
		}()
	} else {
		logger.Warn().Msg("REDIS_URL not set, queued sends disabled")
	}

	var authenticator *auth.Authenticator
	if cfg.JWTSecret != "" {
		authenticator = auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, 24*time.Hour)
	} else {
		logger.Warn().Msg("JWT_SECRET not set, auth disabled")
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())

	r.GET("/healthz", func(c *gin.Context) {
		checkCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(checkCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := cache.Ping(checkCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "cache": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1.RegisterRoutes(r, authenticator, httpHandler.Deps{
		Pool:      pool,
		Cache:     cache,
		Queue:     queueClient,
		Hub:       hub,
		Publisher: publisher,
		Log:       logger,

		ProfileTTL:      cfg.ProfileCacheTTL,
		DirectoryFanout: cfg.DirectoryFanout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting marketchat server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
