package imggen

import (
	"context"
	"time"

	"go.uber.org/zap"

	"slideforge/internal/messaging"
	"slideforge/internal/repository"
)

// Worker processes image tasks: generate, persist the URL, then wait the
// fixed inter-request delay before taking the next task. The delay is the
// rate-limit protection for the image backend.
type Worker struct {
	service Service
	slides  repository.SlideRepository
	delay   time.Duration
	logger  *zap.Logger
}

// NewWorker wires a Worker.
func NewWorker(service Service, slides repository.SlideRepository, delay time.Duration, logger *zap.Logger) *Worker {
	return &Worker{
		service: service,
		slides:  slides,
		delay:   delay,
		logger:  logger.Named("ImageWorker"),
	}
}

// Handle implements messaging.TaskHandler.
func (w *Worker) Handle(ctx context.Context, task messaging.ImageTaskPayload) error {
	result := w.service.GenerateImage(ctx, task)
	if result.Error != nil {
		return result.Error
	}

	if err := w.slides.SetImageURL(ctx, task.SlideID, result.ImageURL); err != nil {
		w.logger.Error("Failed to persist image URL",
			zap.String("slideID", task.SlideID.String()),
			zap.Error(err))
		return err
	}

	w.logger.Info("Slide image stored",
		zap.String("slideID", task.SlideID.String()),
		zap.String("url", result.ImageURL))

	select {
	case <-time.After(w.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
