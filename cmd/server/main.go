package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"slideforge/internal/ai"
	"slideforge/internal/api"
	"slideforge/internal/brainstorm"
	"slideforge/internal/config"
	"slideforge/internal/database"
	"slideforge/internal/deck"
	"slideforge/internal/docstore"
	"slideforge/internal/generation"
	"slideforge/internal/logger"
	"slideforge/internal/mcp"
	"slideforge/internal/messaging"
	"slideforge/internal/repository"
	"slideforge/internal/service"
	"slideforge/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: "json"})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Migrate(cfg, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}
	pool, err := database.Connect(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()

	amqpConn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer amqpConn.Close()

	publisher, err := messaging.NewRabbitImageTaskPublisher(amqpConn, cfg.ImageTaskQueue, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to set up image task publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	userRepo := repository.NewPgUserRepository(pool, zapLogger)
	presentationRepo := repository.NewPgPresentationRepository(pool, zapLogger)
	slideRepo := repository.NewPgSlideRepository(pool, zapLogger)
	creditRepo := repository.NewPgCreditRepository(pool, zapLogger)
	apiKeyRepo := repository.NewPgAPIKeyRepository(pool, zapLogger)

	// AI and generation pipeline
	aiClient, err := ai.New(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create AI client", zap.Error(err))
	}
	selector := deck.NewSelector(rand.New(rand.NewSource(time.Now().UnixNano())))
	outlineGen := generation.NewOutlineGenerator(aiClient, selector, cfg.AIModel, cfg.AIFallbackModel, zapLogger)
	slideGen := generation.NewSlideGenerator(aiClient, cfg.AIModel, cfg.AIFallbackModel, zapLogger)

	// Document store: memory, Redis mirror, authoritative Postgres
	docs := docstore.New(
		docstore.NewMemoryTier(),
		docstore.NewRedisTier(rdb, cfg.DocCacheTTL, zapLogger),
		docstore.NewPostgresTier(presentationRepo, slideRepo, zapLogger),
		cfg.SyncDebounce, cfg.SyncInterval, zapLogger,
	)
	go docs.Run(ctx)

	hub := ws.NewHub(zapLogger)
	go hub.Run()

	// Services
	authService := service.NewAuthService(userRepo, apiKeyRepo, creditRepo, cfg.JWTSecret, cfg.JWTLifetime, zapLogger)
	creditService := service.NewCreditService(creditRepo, zapLogger)
	presentationService := service.NewPresentationService(
		presentationRepo, slideRepo, creditRepo,
		outlineGen, slideGen, docs, publisher, hub, zapLogger,
	)
	brainstormService := brainstorm.NewService(rdb, aiClient, cfg.AIModel, zapLogger)

	mcpTools := mcp.NewTools(presentationService, creditService, zapLogger)
	mcpHandler := mcp.NewHandler(authService.ValidateAPIKey, mcpTools, zapLogger)

	router := api.NewRouter(api.RouterDeps{
		Auth:          authService,
		AuthHandler:   api.NewAuthHandler(authService),
		Presentations: api.NewPresentationHandler(presentationService, zapLogger),
		Credits:       api.NewCreditHandler(creditService),
		Brainstorm:    api.NewBrainstormHandler(brainstormService, presentationService, zapLogger),
		MCP:           mcpHandler,
		Hub:           hub,
		Logger:        zapLogger,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		zapLogger.Info("Starting SlideForge server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	// Stop the flush loop; its shutdown path pushes pending documents.
	cancel()
	docs.FlushAll(shutdownCtx)

	zapLogger.Info("Server stopped")
}
