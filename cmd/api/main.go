package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pageza/fridgechef/backend/config"
	"github.com/pageza/fridgechef/backend/internal/database"
	"github.com/pageza/fridgechef/backend/internal/logging"
	"github.com/pageza/fridgechef/backend/internal/server"
	"github.com/pageza/fridgechef/backend/internal/service"
)

func main() {
	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logging.New(cfg.LogLevel, cfg.Environment.IsProduction())
	log.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"mock_llm":    cfg.MockLLM,
	}).Info("configuration loaded")

	db, err := database.New(cfg, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		if rdb, err = database.NewRedisClient(ctx, cfg.RedisURL, log); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer func() { _ = rdb.Close() }()
	} else {
		log.Info("REDIS_URL not set, rate limiting per process")
	}

	var archive service.IImageArchive
	s3cfg, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize S3: %v", err)
	}
	if s3cfg != nil {
		archive = service.NewS3Archive(s3cfg.Client, s3cfg.BucketName, log)
	}

	chat := service.NewChatClient(cfg.OpenAIAPIKey, cfg.OpenAIAPIURL, cfg.LLMTimeout, log)
	history := service.NewHistoryService(db)
	analyzer := service.NewAnalyzer(
		service.NewVisionService(chat, cfg.VisionModel, cfg.MockLLM, log),
		service.NewRecipeService(chat, cfg.RecipeModel, cfg.RecipeCount, cfg.MockLLM, log),
		archive,
		history,
		log,
	)

	srv := server.New(cfg, server.Deps{Analyzer: analyzer, History: history, DB: db, Redis: rdb}, log)

	// Channel to listen for errors coming from the server
	errChan := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		errChan <- srv.Start()
	}()

	// Channel to listen for an interrupt or terminate signal from the OS
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Block until we receive a signal or error
	select {
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("received signal")
	}

	// Gracefully shutdown the server
	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
	log.Info("server stopped")
}
