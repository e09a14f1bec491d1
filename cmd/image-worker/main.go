package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"slideforge/internal/config"
	"slideforge/internal/database"
	"slideforge/internal/imggen"
	"slideforge/internal/logger"
	"slideforge/internal/messaging"
	"slideforge/internal/repository"
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

	pool, err := database.Connect(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()

	amqpConn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer amqpConn.Close()

	consumer, err := messaging.NewImageTaskConsumer(amqpConn, cfg.ImageTaskQueue, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to set up image task consumer", zap.Error(err))
	}
	defer consumer.Close()

	slideRepo := repository.NewPgSlideRepository(pool, zapLogger)
	imageService := imggen.NewService(cfg, zapLogger)
	worker := imggen.NewWorker(imageService, slideRepo, cfg.ImageTaskDelay, zapLogger)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		zapLogger.Info("Shutdown signal received")
		cancel()
	}()

	zapLogger.Info("Starting image worker",
		zap.String("queue", cfg.ImageTaskQueue),
		zap.Duration("taskDelay", cfg.ImageTaskDelay))

	if err := consumer.Run(ctx, worker.Handle); err != nil && !errors.Is(err, context.Canceled) {
		zapLogger.Fatal("Image task consumer stopped with error", zap.Error(err))
	}
	zapLogger.Info("Image worker stopped")
}
