package imggen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"slideforge/internal/config"
	"slideforge/internal/messaging"
)

// ErrImageGenerationFailed is returned when the image backend rejects or
// fails a request.
var ErrImageGenerationFailed = errors.New("image generation failed")

// Result of one image generation.
type Result struct {
	ImageURL string
	Error    error
}

// Service generates one illustration per task and returns its public URL.
type Service interface {
	GenerateImage(ctx context.Context, task messaging.ImageTaskPayload) Result
}

type serviceImpl struct {
	logger      *zap.Logger
	client      *http.Client
	baseURL     string
	styleSuffix string
}

// NewService builds the image generation service.
func NewService(cfg *config.Config, logger *zap.Logger) Service {
	return &serviceImpl{
		logger:      logger.Named("ImageService"),
		client:      &http.Client{Timeout: cfg.ImageAPITimeout},
		baseURL:     strings.TrimSuffix(cfg.ImageAPIBaseURL, "/"),
		styleSuffix: cfg.ImageStyleSuffix,
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style,omitempty"`
	Theme  string `json:"theme,omitempty"`
}

type generateResponse struct {
	ImageURL string `json:"imageUrl"`
	Error    string `json:"error,omitempty"`
}

// GenerateImage calls the image backend with the slide's prompt. The style
// suffix and per-presentation image style are folded into the prompt the same
// way for every call so retries stay reproducible.
func (s *serviceImpl) GenerateImage(ctx context.Context, task messaging.ImageTaskPayload) Result {
	log := s.logger.With(
		zap.String("taskID", task.TaskID),
		zap.String("slideID", task.SlideID.String()))

	prompt := task.Prompt
	if task.ImageStyle != "" {
		prompt = fmt.Sprintf("%s, %s style", prompt, task.ImageStyle)
	}
	if s.styleSuffix != "" {
		prompt = prompt + " " + s.styleSuffix
	}

	log.Info("Generating slide image")

	body, err := json.Marshal(generateRequest{Prompt: prompt, Style: task.ImageStyle, Theme: task.Theme})
	if err != nil {
		return Result{Error: fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return Result{Error: fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		log.Error("Image API call failed", zap.Error(err))
		return Result{Error: fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{Error: fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)}
	}

	if resp.StatusCode != http.StatusOK {
		log.Error("Image API returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return Result{Error: fmt.Errorf("%w: status %d", ErrImageGenerationFailed, resp.StatusCode)}
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Result{Error: fmt.Errorf("%w: malformed response: %v", ErrImageGenerationFailed, err)}
	}
	if parsed.Error != "" {
		return Result{Error: fmt.Errorf("%w: %s", ErrImageGenerationFailed, parsed.Error)}
	}
	if parsed.ImageURL == "" {
		return Result{Error: fmt.Errorf("%w: response has no image URL", ErrImageGenerationFailed)}
	}

	log.Info("Image generated", zap.Duration("duration", time.Since(start)), zap.String("url", parsed.ImageURL))
	return Result{ImageURL: parsed.ImageURL}
}
