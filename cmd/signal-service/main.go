package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"golang-signal-pipeline/internal/signal/config"
	delivery "golang-signal-pipeline/internal/signal/delivery/http"
	"golang-signal-pipeline/internal/signal/repository"
	"golang-signal-pipeline/internal/signal/service"
	"golang-signal-pipeline/pkg/logger"
	"golang-signal-pipeline/pkg/postgres"
	"golang-signal-pipeline/pkg/redis"
	"golang-signal-pipeline/pkg/telegram"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the signal service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	appLogger.Info("Starting Signal Service", logger.Field("name", cfg.App.Name))

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
	signalRepo := repository.NewSignalRepository(db.DB)
	dispositionRepo := repository.NewDispositionRepository(db.DB)
	agentRepo := repository.NewAgentRepository(db.DB)
	queueRepo := repository.NewQueueRepository(redisClient.Client, cfg.Broadcast.DedicatedCategories, cfg.Redis.StreamMaxLen)

	specialists := make([]repository.SpecialistRepository, 0, len(cfg.Specialists))
	for _, sc := range cfg.Specialists {
		specialists = append(specialists, repository.NewWebhookSpecialistRepository(sc, appLogger))
	}
	if len(specialists) == 0 {
		appLogger.Fatal("No specialists configured")
	}

	// Initialize services
	aggregator := service.NewConsensusAggregator(cfg.Consensus)
	validator := service.NewRuleBasedValidator()
	broadcastSvc := service.NewBroadcastService(cfg, appLogger, agentRepo, dispositionRepo, queueRepo, validator)
	detectionSvc := service.NewDetectionService(cfg, appLogger, specialists, aggregator, signalRepo, broadcastSvc, notifier)
	signalSvc := service.NewSignalService(signalRepo, appLogger)
	dispositionSvc := service.NewDispositionService(dispositionRepo, appLogger)
	healthSvc := service.NewHealthService(cfg, appLogger, signalRepo, dispositionRepo, queueRepo)
	queueSvc := service.NewQueueService(queueRepo, appLogger)

	// Start the detection scheduler
	if err := detectionSvc.Start(ctx); err != nil {
		appLogger.Fatal("Failed to start detection scheduler", logger.ErrorField(err))
	}

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	// Initialize handlers and routes
	apiV1 := e.Group("/api/v1")

	signalHandler := delivery.NewSignalHandler(signalSvc, dispositionSvc, appLogger)
	signalHandler.RegisterRoutes(apiV1.Group("/signals"))

	dispositionHandler := delivery.NewDispositionHandler(dispositionSvc, appLogger)
	dispositionHandler.RegisterAgentRoutes(apiV1.Group("/agents"))
	dispositionHandler.RegisterRoutes(apiV1.Group("/dispositions"))

	healthHandler := delivery.NewHealthHandler(healthSvc, appLogger)
	healthHandler.RegisterRoutes(apiV1.Group("/health"))

	queueHandler := delivery.NewQueueHandler(queueSvc, appLogger)
	queueHandler.RegisterRoutes(apiV1.Group("/queue"))

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start HTTP server", logger.ErrorField(err))
		}
	}()

	<-ctx.Done()

	appLogger.Info("Shutting down signal service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Failed to shut down HTTP server", logger.ErrorField(err))
	}
	appLogger.Info("Signal service stopped.")
}

func main() {
	rootCmd := &cobra.Command{Use: "signal-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-signal.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing signal-service CLI: %s\n", err)
		os.Exit(1)
	}
}
