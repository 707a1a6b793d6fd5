// Package main is the entry point for the PassVault server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/passvault-io/passvault/internal/config"
	"github.com/passvault-io/passvault/internal/crypto"
	"github.com/passvault-io/passvault/internal/database"
	"github.com/passvault-io/passvault/internal/handlers"
	"github.com/passvault-io/passvault/internal/metrics"
	"github.com/passvault-io/passvault/internal/services"
	"github.com/passvault-io/passvault/internal/token"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Startup fails here if the signing secret or encryption key seed is
	// missing; there is no generated fallback.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.Security.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("starting PassVault",
		"version", version,
		"env", cfg.Security.Environment,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL
	logger.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if pingErr := db.Ping(ctx); pingErr != nil {
		return fmt.Errorf("failed to ping database: %w", pingErr)
	}
	logger.Info("connected to PostgreSQL")

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Connect to Redis
	logger.Info("connecting to Redis")
	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.PoolSize = cfg.Redis.PoolSize
	opt.MinIdleConns = cfg.Redis.MinIdleConns
	redisClient := redis.NewClient(opt)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	logger.Info("connected to Redis")

	// Initialize services
	cipher, err := crypto.NewCipher(crypto.DeriveKey(cfg.Security.EncryptionKeySeed))
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}

	userService := services.NewUserService(db)
	entryService := services.NewEntryService(db, cipher)
	sessionService := services.NewSessionService(
		token.NewService([]byte(cfg.Security.SigningSecret)),
		services.NewRedisRevocationList(redisClient),
	)

	deps := &handlers.Dependencies{
		Config:         cfg,
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		UserService:    userService,
		EntryService:   entryService,
		SessionService: sessionService,
	}

	router := handlers.NewRouter(deps)

	server := &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start metrics collector (every 30 seconds)
	go metrics.StartCollector(ctx, db.Pool, 30*time.Second)

	// Start server in goroutine
	go func() {
		logger.Info("server listening",
			"addr", cfg.ServerAddr(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
