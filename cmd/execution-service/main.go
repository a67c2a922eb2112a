package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"golang-signal-pipeline/internal/executor/config"
	"golang-signal-pipeline/internal/executor/delivery/consumer"
	"golang-signal-pipeline/internal/executor/repository"
	"golang-signal-pipeline/internal/executor/service"
	"golang-signal-pipeline/pkg/common"
	"golang-signal-pipeline/pkg/logger"
	"golang-signal-pipeline/pkg/postgres"
	"golang-signal-pipeline/pkg/redis"
	"golang-signal-pipeline/pkg/telegram"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the execution service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Execution Service", logger.Field("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	defer redisClient.Close()

	// Initialize the Telegram notifier
	notifier := telegram.NewNoopNotifier()
	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Fatal("Failed to initialize Telegram notifier", logger.ErrorField(err))
		}
	}

	// Initialize repositories
	dispositionRepo := repository.NewDispositionRepository(db.DB)
	signalRepo := repository.NewSignalRepository(db.DB)
	venueRepo := repository.NewPaperVenueRepository(cfg.Venue, appLogger)

	// Initialize executor service and consumer
	executorSvc := service.NewExecutorService(cfg, appLogger, redisClient.Client, dispositionRepo, signalRepo, venueRepo, notifier)
	redisConsumer := consumer.NewRedisConsumer(cfg, redisClient.Client, executorSvc, appLogger)

	// Create the consumer groups if they don't exist.
	// MKSTREAM creates the stream if it doesn't exist.
	for _, stream := range redisConsumer.Streams() {
		if err := redisClient.XGroupCreateMkStream(context.Background(), stream, common.RedisStreamGroup, "0").Err(); err != nil {
			if err.Error() != "BUSYGROUP Consumer Group name already exists" {
				appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err), logger.StringField("stream", stream))
			}
		}
	}

	redisConsumer.Start(ctx)

	appLogger.Info("Execution service started. Waiting for entries...")

	// Wait for interrupt signal to gracefully shut down the service
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down execution service...")
	cancel()
	redisConsumer.Stop()
	appLogger.Info("Execution service stopped.")
}

func main() {
	rootCmd := &cobra.Command{Use: "execution-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-executor.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing execution-service CLI: %s\n", err)
		os.Exit(1)
	}
}
