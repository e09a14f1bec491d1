package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"slideforge/internal/ai"
	"slideforge/internal/deck"
	"slideforge/internal/model"
)

// OutlineGenerator produces the presentation outline: one LLM call against the
// primary model, retried once against the fallback model with relaxed settings.
// Outline failure is terminal for the whole pipeline, so errors propagate.
type OutlineGenerator struct {
	client        ai.Client
	selector      *deck.Selector
	primaryModel  string
	fallbackModel string
	logger        *zap.Logger
}

// NewOutlineGenerator wires an OutlineGenerator.
func NewOutlineGenerator(client ai.Client, selector *deck.Selector, primaryModel, fallbackModel string, logger *zap.Logger) *OutlineGenerator {
	return &OutlineGenerator{
		client:        client,
		selector:      selector,
		primaryModel:  primaryModel,
		fallbackModel: fallbackModel,
		logger:        logger.Named("OutlineGenerator"),
	}
}

// outlinePayload mirrors the structured output contract given to the model.
type outlinePayload struct {
	Title    string `json:"title"`
	Sections []struct {
		Title        string   `json:"title"`
		BulletPoints []string `json:"bulletPoints"`
		TemplateType string   `json:"templateType"`
	} `json:"sections"`
}

// Generate runs the outline call and post-processes the result: the first
// section is forced to a random accent template regardless of the model's
// suggestion, missing or unknown templates are filled by the selector, and
// every section gets a fresh UUID.
func (g *OutlineGenerator) Generate(ctx context.Context, req model.GenerationRequest) (*model.Outline, error) {
	prompt := TruncatePrompt(req.Prompt)
	systemPrompt := g.buildSystemPrompt(req)

	temperature := 0.7
	payload, err := g.callModel(ctx, g.primaryModel, systemPrompt, prompt, ai.Params{Temperature: &temperature}, req.SlideCount)
	if err != nil {
		g.logger.Warn("Primary outline generation failed, retrying with fallback model",
			zap.String("primaryModel", g.primaryModel),
			zap.String("fallbackModel", g.fallbackModel),
			zap.Error(err))
		relaxedTemp := 0.5
		payload, err = g.callModel(ctx, g.fallbackModel, systemPrompt, prompt, ai.Params{Temperature: &relaxedTemp}, req.SlideCount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrOutlineFailed, err)
		}
	}

	outline := &model.Outline{Title: payload.Title}
	history := make([]model.TemplateType, 0, req.SlideCount)

	for i, section := range payload.Sections {
		if i >= req.SlideCount {
			// Never exceed the requested slide count.
			break
		}

		suggested := model.TemplateType(section.TemplateType)

		var templateType model.TemplateType
		switch {
		case i == 0:
			// The first slide always opens with an accent layout; the model
			// suggestion is discarded unconditionally.
			templateType = g.selector.Select(section.Title, section.BulletPoints, 0, req.SlideCount, history)
		case i == req.SlideCount-1 && deck.IsImage(suggested):
			// The closing slide never takes an image layout; the selector
			// picks a conclusion template instead.
			templateType = g.selector.Select(section.Title, section.BulletPoints, i, req.SlideCount, history)
		case deck.IsKnown(suggested):
			templateType = suggested
		default:
			templateType = g.selector.Select(section.Title, section.BulletPoints, i, req.SlideCount, history)
		}
		history = append(history, templateType)

		outline.Sections = append(outline.Sections, model.OutlineSection{
			ID:           uuid.New(),
			Title:        section.Title,
			BulletPoints: section.BulletPoints,
			TemplateType: templateType,
		})
	}

	return outline, nil
}

func (g *OutlineGenerator) callModel(ctx context.Context, modelName, systemPrompt, prompt string, params ai.Params, wantSections int) (*outlinePayload, error) {
	raw, _, err := g.client.GenerateJSON(ctx, modelName, systemPrompt, prompt, params)
	if err != nil {
		return nil, err
	}

	var payload outlinePayload
	if err := json.Unmarshal([]byte(cleanJSONResponse(raw)), &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed outline JSON: %v", model.ErrAIGenerationFailed, err)
	}
	if strings.TrimSpace(payload.Title) == "" {
		return nil, fmt.Errorf("%w: outline has no title", model.ErrAIGenerationFailed)
	}
	if len(payload.Sections) < wantSections {
		return nil, fmt.Errorf("%w: expected %d sections, got %d", model.ErrAIGenerationFailed, wantSections, len(payload.Sections))
	}
	for _, s := range payload.Sections {
		if strings.TrimSpace(s.Title) == "" {
			return nil, fmt.Errorf("%w: outline section has an empty title", model.ErrAIGenerationFailed)
		}
	}
	return &payload, nil
}

func (g *OutlineGenerator) buildSystemPrompt(req model.GenerationRequest) string {
	var b strings.Builder
	b.WriteString("You are an expert presentation writer. Create an outline for a slide deck.\n")
	fmt.Fprintf(&b, "Tone: %s.\n", ToneForStyle(req.Style))
	fmt.Fprintf(&b, "Write all titles and bullet points in %s.\n", LanguageName(req.Language))
	fmt.Fprintf(&b, "Produce exactly %d sections. Each section must have a title and 3-4 bullet points.\n", req.SlideCount)
	if req.EnableWebSearch {
		b.WriteString("Ground the content in current facts; use your web search capability to verify claims.\n")
	}
	b.WriteString(`Respond with a JSON object of the shape {"title": string, "sections": [{"title": string, "bulletPoints": [string], "templateType": string}]}.`)
	fmt.Fprintf(&b, " templateType must be one of: %s.", templateList())
	return b.String()
}

func templateList() string {
	names := make([]string, len(deck.AllTemplates))
	for i, t := range deck.AllTemplates {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
