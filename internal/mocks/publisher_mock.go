package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"slideforge/internal/messaging"
)

// Mock messaging.ImageTaskPublisher
type ImageTaskPublisher struct {
	mock.Mock
}

func (m *ImageTaskPublisher) Publish(ctx context.Context, task messaging.ImageTaskPayload) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}
func (m *ImageTaskPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
