package generation

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"slideforge/internal/ai"
	"slideforge/internal/deck"
	"slideforge/internal/mocks"
	"slideforge/internal/model"
)

const (
	testPrimaryModel  = "primary-model"
	testFallbackModel = "fallback-model"
)

func newOutlineGenerator(client ai.Client) *OutlineGenerator {
	selector := deck.NewSelector(rand.New(rand.NewSource(1)))
	return NewOutlineGenerator(client, selector, testPrimaryModel, testFallbackModel, zap.NewNop())
}

func outlineJSON(t *testing.T, title string, sections []map[string]interface{}) string {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{"title": title, "sections": sections})
	require.NoError(t, err)
	return string(raw)
}

func testRequest(count int) model.GenerationRequest {
	return model.GenerationRequest{
		Prompt:        "The history of aviation",
		SlideCount:    count,
		Style:         model.StyleProfessional,
		Language:      "en",
		ContentLength: model.LengthMedium,
	}
}

func section(title string, template string, bullets ...string) map[string]interface{} {
	return map[string]interface{}{
		"title":        title,
		"bulletPoints": bullets,
		"templateType": template,
	}
}

func TestOutlineGeneratePostProcessing(t *testing.T) {
	client := &mocks.AIClient{}
	raw := outlineJSON(t, "Aviation History", []map[string]interface{}{
		section("Early flight", "timeline", "kites", "gliders", "balloons"),
		section("The Wright brothers", "bullets", "1903", "Kitty Hawk"),
		section("Jet age", "not-a-real-template", "turbojets", "commercial travel"),
	})
	client.On("GenerateJSON", mock.Anything, testPrimaryModel, mock.Anything, mock.Anything, mock.Anything).
		Return(raw, ai.Usage{}, nil).Once()

	gen := newOutlineGenerator(client)
	outline, err := gen.Generate(context.Background(), testRequest(3))
	require.NoError(t, err)
	require.Len(t, outline.Sections, 3)
	assert.Equal(t, "Aviation History", outline.Title)

	// The first section's template suggestion is always discarded for an
	// accent layout.
	assert.True(t, deck.IsAccent(outline.Sections[0].TemplateType),
		"first section got %s", outline.Sections[0].TemplateType)

	// Known suggestions survive; unknown ones are replaced by the selector.
	assert.Equal(t, model.TemplateBullets, outline.Sections[1].TemplateType)
	assert.True(t, deck.IsKnown(outline.Sections[2].TemplateType))
	assert.NotEqual(t, model.TemplateType("not-a-real-template"), outline.Sections[2].TemplateType)

	// Every section carries a fresh id.
	seen := map[uuid.UUID]bool{}
	for _, s := range outline.Sections {
		assert.NotEqual(t, uuid.Nil, s.ID)
		assert.False(t, seen[s.ID], "duplicate section id")
		seen[s.ID] = true
	}

	client.AssertExpectations(t)
}

func TestOutlineGenerateLastSectionNeverImageTemplate(t *testing.T) {
	client := &mocks.AIClient{}
	raw := outlineJSON(t, "Aviation History", []map[string]interface{}{
		section("Early flight", "timeline", "kites", "gliders"),
		section("The Wright brothers", "bullets", "1903", "Kitty Hawk"),
		section("Looking ahead", "accent-left", "supersonic", "electric"),
	})
	client.On("GenerateJSON", mock.Anything, testPrimaryModel, mock.Anything, mock.Anything, mock.Anything).
		Return(raw, ai.Usage{}, nil).Once()

	gen := newOutlineGenerator(client)
	outline, err := gen.Generate(context.Background(), testRequest(3))
	require.NoError(t, err)
	require.Len(t, outline.Sections, 3)

	// The model's image-layout suggestion for the closing slide is replaced
	// by the selector.
	last := outline.Sections[2].TemplateType
	assert.False(t, deck.IsImage(last), "last section got image template %s", last)
	assert.True(t, deck.IsKnown(last))
	client.AssertExpectations(t)
}

func TestOutlineGenerateClampsExtraSections(t *testing.T) {
	client := &mocks.AIClient{}
	raw := outlineJSON(t, "Oversized", []map[string]interface{}{
		section("One", "bullets", "a"),
		section("Two", "bullets", "b"),
		section("Three", "bullets", "c"),
		section("Four", "bullets", "d"),
		section("Five", "bullets", "e"),
	})
	client.On("GenerateJSON", mock.Anything, testPrimaryModel, mock.Anything, mock.Anything, mock.Anything).
		Return(raw, ai.Usage{}, nil).Once()

	gen := newOutlineGenerator(client)
	outline, err := gen.Generate(context.Background(), testRequest(3))
	require.NoError(t, err)
	assert.Len(t, outline.Sections, 3, "sections beyond the requested count are dropped")
}

func TestOutlineGenerateRetriesFallbackOnShortOutline(t *testing.T) {
	client := &mocks.AIClient{}

	// Primary returns fewer sections than requested: treated as malformed.
	short := outlineJSON(t, "Short", []map[string]interface{}{
		section("Only one", "bullets", "a"),
	})
	client.On("GenerateJSON", mock.Anything, testPrimaryModel, mock.Anything, mock.Anything, mock.Anything).
		Return(short, ai.Usage{}, nil).Once()

	full := outlineJSON(t, "Complete", []map[string]interface{}{
		section("One", "bullets", "a"),
		section("Two", "bullets", "b"),
		section("Three", "bullets", "c"),
	})
	client.On("GenerateJSON", mock.Anything, testFallbackModel, mock.Anything, mock.Anything, mock.Anything).
		Return(full, ai.Usage{}, nil).Once()

	gen := newOutlineGenerator(client)
	outline, err := gen.Generate(context.Background(), testRequest(3))
	require.NoError(t, err)
	assert.Equal(t, "Complete", outline.Title)
	client.AssertExpectations(t)
}

func TestOutlineGenerateBothModelsFail(t *testing.T) {
	client := &mocks.AIClient{}
	client.On("GenerateJSON", mock.Anything, testPrimaryModel, mock.Anything, mock.Anything, mock.Anything).
		Return("", ai.Usage{}, errors.New("boom")).Once()
	client.On("GenerateJSON", mock.Anything, testFallbackModel, mock.Anything, mock.Anything, mock.Anything).
		Return("", ai.Usage{}, errors.New("boom again")).Once()

	gen := newOutlineGenerator(client)
	_, err := gen.Generate(context.Background(), testRequest(3))
	assert.ErrorIs(t, err, model.ErrOutlineFailed)
	client.AssertExpectations(t)
}

func TestOutlineGenerateStripsCodeFences(t *testing.T) {
	client := &mocks.AIClient{}
	raw := "```json\n" + outlineJSON(t, "Fenced", []map[string]interface{}{
		section("One", "bullets", "a"),
		section("Two", "paragraph", "b"),
		section("Three", "quote", "c"),
	}) + "\n```"
	client.On("GenerateJSON", mock.Anything, testPrimaryModel, mock.Anything, mock.Anything, mock.Anything).
		Return(raw, ai.Usage{}, nil).Once()

	gen := newOutlineGenerator(client)
	outline, err := gen.Generate(context.Background(), testRequest(3))
	require.NoError(t, err)
	assert.Equal(t, "Fenced", outline.Title)
}
