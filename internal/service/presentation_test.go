package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"slideforge/internal/ai"
	"slideforge/internal/deck"
	"slideforge/internal/generation"
	"slideforge/internal/mocks"
	"slideforge/internal/model"
)

const (
	testPrimaryModel  = "primary-model"
	testFallbackModel = "fallback-model"
)

type presentationFixture struct {
	presentations *mocks.PresentationRepository
	slides        *mocks.SlideRepository
	credits       *mocks.CreditRepository
	aiClient      *mocks.AIClient
	publisher     *mocks.ImageTaskPublisher
	svc           *PresentationService
}

func newPresentationFixture() *presentationFixture {
	f := &presentationFixture{
		presentations: &mocks.PresentationRepository{},
		slides:        &mocks.SlideRepository{},
		credits:       &mocks.CreditRepository{},
		aiClient:      &mocks.AIClient{},
		publisher:     &mocks.ImageTaskPublisher{},
	}
	selector := deck.NewSelector(rand.New(rand.NewSource(1)))
	outlineGen := generation.NewOutlineGenerator(f.aiClient, selector, testPrimaryModel, testFallbackModel, zap.NewNop())
	slideGen := generation.NewSlideGenerator(f.aiClient, testPrimaryModel, testFallbackModel, zap.NewNop())
	f.svc = NewPresentationService(
		f.presentations, f.slides, f.credits,
		outlineGen, slideGen,
		nil, f.publisher, nil, zap.NewNop(),
	)
	return f
}

func testOutlineJSON(t *testing.T) string {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"title": "Test Deck",
		"sections": []map[string]interface{}{
			{"title": "Intro", "bulletPoints": []string{"a", "b"}, "templateType": "bullets"},
			{"title": "Body", "bulletPoints": []string{"c", "d"}, "templateType": "bullets"},
			{"title": "Close", "bulletPoints": []string{"e"}, "templateType": "paragraph"},
		},
	})
	require.NoError(t, err)
	return string(raw)
}

func TestGenerateHappyPath(t *testing.T) {
	f := newPresentationFixture()
	userID := uuid.New()

	f.credits.On("Deduct", mock.Anything, userID, model.CreditCostPresentationCreate,
		model.ActionPresentationCreate, mock.Anything).
		Return(&model.CreditLedgerEntry{BalanceAfter: 90}, nil).Once()
	f.presentations.On("Create", mock.Anything, mock.AnythingOfType("*model.Presentation")).Return(nil).Once()
	f.presentations.On("UpdateOutline", mock.Anything, mock.Anything, mock.AnythingOfType("*model.Outline")).Return(nil).Once()
	f.presentations.On("UpdateStatus", mock.Anything, mock.Anything, model.StatusCompleted).Return(nil).Once()

	// One outline call, then one content call per section.
	f.aiClient.On("GenerateJSON", mock.Anything, testPrimaryModel, mock.Anything, mock.Anything, mock.Anything).
		Return(testOutlineJSON(t), ai.Usage{}, nil).Once()
	f.aiClient.On("GenerateJSON", mock.Anything, testPrimaryModel, mock.Anything, mock.Anything, mock.Anything).
		Return(`{"title":"Slide","content":"<p>body</p>","imagePrompt":"an illustration"}`, ai.Usage{}, nil).Times(3)

	f.slides.On("Create", mock.Anything, mock.AnythingOfType("*model.Slide")).Return(nil).Times(3)

	// The first slide is forced to an accent layout, which needs an image.
	f.publisher.On("Publish", mock.Anything, mock.AnythingOfType("messaging.ImageTaskPayload")).Return(nil).Once()

	doc, err := f.svc.Generate(context.Background(), userID, model.GenerationRequest{
		Prompt:     "test topic",
		SlideCount: 3,
	})
	require.NoError(t, err)

	require.Len(t, doc.Slides, 3)
	assert.Equal(t, model.StatusCompleted, doc.Presentation.Status)
	assert.True(t, deck.IsAccent(doc.Slides[0].TemplateType))
	for i, slide := range doc.Slides {
		assert.Equal(t, i, slide.Position, "positions must be contiguous from zero")
		assert.Equal(t, doc.Presentation.ID, slide.PresentationID)
	}
	require.NotNil(t, doc.Slides[0].ImagePrompt)
	assert.True(t, doc.Slides[0].ImageGenerating)
	assert.Nil(t, doc.Slides[1].ImagePrompt, "non-image layouts must ignore a stray imagePrompt")

	f.credits.AssertExpectations(t)
	f.presentations.AssertExpectations(t)
	f.slides.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestGenerateInsufficientCreditsShortCircuits(t *testing.T) {
	f := newPresentationFixture()
	userID := uuid.New()

	f.credits.On("Deduct", mock.Anything, userID, model.CreditCostPresentationCreate,
		model.ActionPresentationCreate, mock.Anything).
		Return(nil, model.ErrInsufficientCredits).Once()

	_, err := f.svc.Generate(context.Background(), userID, model.GenerationRequest{
		Prompt:     "test topic",
		SlideCount: 3,
	})
	assert.ErrorIs(t, err, model.ErrInsufficientCredits)

	f.presentations.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.aiClient.AssertNotCalled(t, "GenerateJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateOutlineFailureRefundsCredits(t *testing.T) {
	f := newPresentationFixture()
	userID := uuid.New()

	f.credits.On("Deduct", mock.Anything, userID, model.CreditCostPresentationCreate,
		model.ActionPresentationCreate, mock.Anything).
		Return(&model.CreditLedgerEntry{BalanceAfter: 90}, nil).Once()
	f.presentations.On("Create", mock.Anything, mock.AnythingOfType("*model.Presentation")).Return(nil).Once()

	f.aiClient.On("GenerateJSON", mock.Anything, testPrimaryModel, mock.Anything, mock.Anything, mock.Anything).
		Return("", ai.Usage{}, errors.New("model down")).Once()
	f.aiClient.On("GenerateJSON", mock.Anything, testFallbackModel, mock.Anything, mock.Anything, mock.Anything).
		Return("", ai.Usage{}, errors.New("model down")).Once()

	f.credits.On("Refund", mock.Anything, userID, model.CreditCostPresentationCreate, mock.Anything).
		Return(&model.CreditLedgerEntry{BalanceAfter: 100}, nil).Once()
	f.presentations.On("UpdateStatus", mock.Anything, mock.Anything, model.StatusError).Return(nil).Once()

	_, err := f.svc.Generate(context.Background(), userID, model.GenerationRequest{
		Prompt:     "test topic",
		SlideCount: 3,
	})
	assert.ErrorIs(t, err, model.ErrOutlineFailed)

	f.credits.AssertExpectations(t)
	f.presentations.AssertExpectations(t)
	f.slides.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGenerateSingleSlideFailureDoesNotAbortDeck(t *testing.T) {
	f := newPresentationFixture()
	userID := uuid.New()

	f.credits.On("Deduct", mock.Anything, userID, model.CreditCostPresentationCreate,
		model.ActionPresentationCreate, mock.Anything).
		Return(&model.CreditLedgerEntry{BalanceAfter: 90}, nil).Once()
	f.presentations.On("Create", mock.Anything, mock.AnythingOfType("*model.Presentation")).Return(nil).Once()
	f.presentations.On("UpdateOutline", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.presentations.On("UpdateStatus", mock.Anything, mock.Anything, model.StatusCompleted).Return(nil).Once()

	f.aiClient.On("GenerateJSON", mock.Anything, testPrimaryModel, mock.Anything, mock.Anything, mock.Anything).
		Return(testOutlineJSON(t), ai.Usage{}, nil).Once()
	// First section's content call fails on both models; the rest succeed.
	f.aiClient.On("GenerateJSON", mock.Anything, testPrimaryModel, mock.Anything, mock.Anything, mock.Anything).
		Return("", ai.Usage{}, errors.New("flaky")).Once()
	f.aiClient.On("GenerateJSON", mock.Anything, testFallbackModel, mock.Anything, mock.Anything, mock.Anything).
		Return("", ai.Usage{}, errors.New("flaky")).Once()
	f.aiClient.On("GenerateJSON", mock.Anything, testPrimaryModel, mock.Anything, mock.Anything, mock.Anything).
		Return(`{"title":"Slide","content":"<p>body</p>"}`, ai.Usage{}, nil).Times(2)

	f.slides.On("Create", mock.Anything, mock.AnythingOfType("*model.Slide")).Return(nil).Times(3)

	doc, err := f.svc.Generate(context.Background(), userID, model.GenerationRequest{
		Prompt:     "test topic",
		SlideCount: 3,
	})
	require.NoError(t, err)
	require.Len(t, doc.Slides, 3)

	// The failed section carries the deterministic local rendering.
	assert.Contains(t, doc.Slides[0].Content, "<h2>Intro</h2>")
	assert.Contains(t, doc.Slides[0].Content, "<li>a</li>")

	f.credits.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNormalizeRequestDefaults(t *testing.T) {
	req := model.GenerationRequest{Prompt: "  topic  "}
	require.NoError(t, NormalizeRequest(&req))

	assert.Equal(t, "topic", req.Prompt)
	assert.Equal(t, DefaultSlideCount, req.SlideCount)
	assert.Equal(t, model.StyleProfessional, req.Style)
	assert.Equal(t, "en", req.Language)
	assert.Equal(t, model.LengthMedium, req.ContentLength)
}

func TestNormalizeRequestRejects(t *testing.T) {
	cases := []model.GenerationRequest{
		{Prompt: "   "},
		{Prompt: "ok", SlideCount: MaxSlideCount + 1},
		{Prompt: "ok", SlideCount: MinSlideCount - 1},
		{Prompt: "ok", Style: "vaporwave"},
		{Prompt: "ok", ContentLength: "endless"},
	}
	for i, req := range cases {
		assert.ErrorIs(t, NormalizeRequest(&req), model.ErrInvalidInput, "case %d", i)
	}
}

func TestNormalizeRequestRejectsOversizedPrompt(t *testing.T) {
	req := model.GenerationRequest{Prompt: strings.Repeat("a", MaxPromptLength+1)}
	assert.ErrorIs(t, NormalizeRequest(&req), model.ErrPromptTooLong)

	req = model.GenerationRequest{Prompt: strings.Repeat("a", MaxPromptLength)}
	assert.NoError(t, NormalizeRequest(&req), "prompt at the cap is accepted")
}
