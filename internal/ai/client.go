package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"slideforge/internal/config"
	"slideforge/internal/model"
)

const (
	pricePerMillionInputTokensUSD  = 0.15
	pricePerMillionOutputTokensUSD = 0.60
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slideforge_ai_requests_total",
			Help: "Total number of requests to the AI API.",
		},
		[]string{"model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slideforge_ai_request_duration_seconds",
			Help:    "Histogram of AI API request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slideforge_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		},
		[]string{"model"},
	)
	aiCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slideforge_ai_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20),
		},
		[]string{"model"},
	)
	aiEstimatedCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slideforge_ai_estimated_cost_usd_total",
			Help: "Estimated total cost of AI requests in USD.",
		},
		[]string{"model"},
	)
)

// Params are optional generation settings. Pointers distinguish 0 from unset.
type Params struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
}

// Usage holds token accounting for one request.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	EstimatedCostUSD float64
}

// Client generates structured JSON output from a system prompt and user input.
// The model is passed per call so orchestration code can retry against a
// fallback model.
type Client interface {
	GenerateJSON(ctx context.Context, modelName, systemPrompt, userInput string, params Params) (string, Usage, error)
}

func calculateCost(promptTokens, completionTokens int) float64 {
	inputCost := float64(promptTokens) * pricePerMillionInputTokensUSD / 1_000_000.0
	outputCost := float64(completionTokens) * pricePerMillionOutputTokensUSD / 1_000_000.0
	return inputCost + outputCost
}

// --- OpenAI-compatible implementation ---

type openAIClient struct {
	client *openaigo.Client
	logger *zap.Logger
}

func (c *openAIClient) GenerateJSON(ctx context.Context, modelName, systemPrompt, userInput string, params Params) (string, Usage, error) {
	usage := Usage{}

	if strings.TrimSpace(systemPrompt) == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": modelName, "status": "error"}).Inc()
		return "", usage, fmt.Errorf("%w: system prompt is empty", model.ErrAIGenerationFailed)
	}

	messages := []openaigo.ChatCompletionMessage{
		{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{
			Role:    openaigo.ChatMessageRoleUser,
			Content: userInput,
		})
	}

	startTime := time.Now()
	c.logger.Debug("Sending request to AI",
		zap.String("model", modelName),
		zap.Int("systemPromptBytes", len(systemPrompt)),
		zap.Int("userInputBytes", len(userInput)))

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openaigo.ChatCompletionRequest{
			Model:       modelName,
			Messages:    messages,
			Temperature: float32Val(params.Temperature),
			MaxTokens:   intVal(params.MaxTokens),
			TopP:        float32Val(params.TopP),
			ResponseFormat: &openaigo.ChatCompletionResponseFormat{
				Type: openaigo.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)

	duration := time.Since(startTime)

	if err != nil {
		aiRequestsTotal.With(prometheus.Labels{"model": modelName, "status": "error"}).Inc()
		c.logger.Warn("AI API returned error", zap.String("model", modelName), zap.Duration("duration", duration), zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return "", usage, fmt.Errorf("%w: %v", model.ErrModelTimeout, err)
		}
		return "", usage, fmt.Errorf("%w: %v", model.ErrAIGenerationFailed, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": modelName, "status": "error_empty_response"}).Inc()
		return "", usage, fmt.Errorf("%w: received empty response", model.ErrAIGenerationFailed)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": modelName, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": modelName}).Observe(duration.Seconds())

	generatedText := resp.Choices[0].Message.Content
	c.logger.Debug("AI response received",
		zap.String("model", modelName),
		zap.Duration("duration", duration),
		zap.Int("responseChars", len(generatedText)))

	if resp.Usage.TotalTokens > 0 {
		aiPromptTokens.With(prometheus.Labels{"model": modelName}).Observe(float64(resp.Usage.PromptTokens))
		aiCompletionTokens.With(prometheus.Labels{"model": modelName}).Observe(float64(resp.Usage.CompletionTokens))

		usage.PromptTokens = resp.Usage.PromptTokens
		usage.CompletionTokens = resp.Usage.CompletionTokens
		usage.TotalTokens = resp.Usage.TotalTokens
		usage.EstimatedCostUSD = calculateCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		if usage.EstimatedCostUSD > 0 {
			aiEstimatedCostUSD.With(prometheus.Labels{"model": modelName}).Add(usage.EstimatedCostUSD)
		}
	} else {
		// Some OpenAI-compatible gateways omit usage; estimate with tiktoken.
		if tke, tkeErr := tiktoken.GetEncoding("cl100k_base"); tkeErr == nil {
			usage.PromptTokens = len(tke.Encode(systemPrompt, nil, nil)) + len(tke.Encode(userInput, nil, nil))
			usage.CompletionTokens = len(tke.Encode(generatedText, nil, nil))
			usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
			usage.EstimatedCostUSD = calculateCost(usage.PromptTokens, usage.CompletionTokens)
			aiPromptTokens.With(prometheus.Labels{"model": modelName}).Observe(float64(usage.PromptTokens))
			aiCompletionTokens.With(prometheus.Labels{"model": modelName}).Observe(float64(usage.CompletionTokens))
		}
	}

	return generatedText, usage, nil
}

func float32Val(f64 *float64) float32 {
	if f64 == nil {
		return 1.0
	}
	return float32(*f64)
}

func intVal(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

// --- Ollama implementation ---

type ollamaClient struct {
	client  *api.Client
	logger  *zap.Logger
	timeout time.Duration
}

func newOllamaClient(cfg *config.Config, logger *zap.Logger) (Client, error) {
	httpClient := &http.Client{Timeout: cfg.AITimeout}

	// api.NewClient expects the URL without a /v1 suffix.
	ollamaBaseURL := strings.TrimSuffix(cfg.AIBaseURL, "/v1")
	ollamaBaseURL = strings.TrimSuffix(ollamaBaseURL, "/")

	parsedURL, err := url.Parse(ollamaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Ollama base URL '%s': %w", ollamaBaseURL, err)
	}

	client := api.NewClient(parsedURL, httpClient)
	logger.Info("Ollama client created", zap.String("baseURL", ollamaBaseURL), zap.Duration("timeout", cfg.AITimeout))

	return &ollamaClient{
		client:  client,
		logger:  logger,
		timeout: cfg.AITimeout,
	}, nil
}

func (c *ollamaClient) GenerateJSON(ctx context.Context, modelName, systemPrompt, userInput string, params Params) (string, Usage, error) {
	usage := Usage{}

	if strings.TrimSpace(systemPrompt) == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": modelName, "status": "error"}).Inc()
		return "", usage, fmt.Errorf("%w: system prompt is empty", model.ErrAIGenerationFailed)
	}

	messages := []api.Message{
		{Role: "system", Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, api.Message{Role: "user", Content: userInput})
	}

	req := &api.ChatRequest{
		Model:    modelName,
		Messages: messages,
		Stream:   func(b bool) *bool { return &b }(false),
		Format:   []byte(`"json"`),
		Options: map[string]interface{}{
			"temperature": params.Temperature,
			"top_p":       params.TopP,
			"num_predict": intVal(params.MaxTokens),
		},
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})

	duration := time.Since(startTime)

	if err != nil {
		aiRequestsTotal.With(prometheus.Labels{"model": modelName, "status": "error"}).Inc()
		c.logger.Warn("Ollama API returned error", zap.String("model", modelName), zap.Duration("duration", duration), zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return "", usage, fmt.Errorf("%w: %v", model.ErrModelTimeout, err)
		}
		return "", usage, fmt.Errorf("%w: %v", model.ErrAIGenerationFailed, err)
	}

	if resp.Message.Content == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": modelName, "status": "error_empty_response"}).Inc()
		return "", usage, fmt.Errorf("%w: received empty response", model.ErrAIGenerationFailed)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": modelName, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": modelName}).Observe(duration.Seconds())

	usage.PromptTokens = resp.PromptEvalCount
	usage.CompletionTokens = resp.EvalCount
	usage.TotalTokens = resp.PromptEvalCount + resp.EvalCount
	// Ollama is typically local, no cost accounting.
	usage.EstimatedCostUSD = 0

	if usage.TotalTokens > 0 {
		aiPromptTokens.With(prometheus.Labels{"model": modelName}).Observe(float64(usage.PromptTokens))
		aiCompletionTokens.With(prometheus.Labels{"model": modelName}).Observe(float64(usage.CompletionTokens))
	}

	return resp.Message.Content, usage, nil
}

// --- Factory ---

// New creates an AI client implementation based on the configuration.
func New(cfg *config.Config, logger *zap.Logger) (Client, error) {
	switch strings.ToLower(cfg.AIClientType) {
	case "openai":
		openaiConfig := openaigo.DefaultConfig(cfg.AIAPIKey)
		openaiConfig.BaseURL = cfg.AIBaseURL
		openaiConfig.HTTPClient = &http.Client{Timeout: cfg.AITimeout}
		client := openaigo.NewClientWithConfig(openaiConfig)
		logger.Info("OpenAI client created",
			zap.String("baseURL", cfg.AIBaseURL),
			zap.String("model", cfg.AIModel),
			zap.Duration("timeout", cfg.AITimeout))
		return &openAIClient{client: client, logger: logger.Named("OpenAIClient")}, nil
	case "ollama":
		return newOllamaClient(cfg, logger.Named("OllamaClient"))
	default:
		return nil, fmt.Errorf("unknown AI client type: '%s'", cfg.AIClientType)
	}
}
