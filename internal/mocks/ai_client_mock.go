package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"slideforge/internal/ai"
)

// Mock ai.Client
type AIClient struct {
	mock.Mock
}

func (m *AIClient) GenerateJSON(ctx context.Context, modelName, systemPrompt, userInput string, params ai.Params) (string, ai.Usage, error) {
	args := m.Called(ctx, modelName, systemPrompt, userInput, params)
	usage, _ := args.Get(1).(ai.Usage)
	return args.String(0), usage, args.Error(2)
}
