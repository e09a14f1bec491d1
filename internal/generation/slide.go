package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"slideforge/internal/ai"
	"slideforge/internal/deck"
	"slideforge/internal/model"
)

// SlideContent is the generated content object for one slide, shaped by the
// template's schema.
type SlideContent struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Columns     []Column `json:"columns,omitempty"`
	ImagePrompt string   `json:"imagePrompt,omitempty"`
}

// Column is one column of a multi-column layout.
type Column struct {
	Heading string `json:"heading,omitempty"`
	Text    string `json:"text"`
}

// SlideGenerator expands one outline section into final slide content. A
// failed primary call is retried once against the fallback model; when both
// fail, a deterministic bullet-list rendering is substituted so the pipeline
// always produces something displayable.
type SlideGenerator struct {
	client        ai.Client
	primaryModel  string
	fallbackModel string
	logger        *zap.Logger
}

// NewSlideGenerator wires a SlideGenerator.
func NewSlideGenerator(client ai.Client, primaryModel, fallbackModel string, logger *zap.Logger) *SlideGenerator {
	return &SlideGenerator{
		client:        client,
		primaryModel:  primaryModel,
		fallbackModel: fallbackModel,
		logger:        logger.Named("SlideGenerator"),
	}
}

// SlideRequest carries one section's generation parameters.
type SlideRequest struct {
	SectionTitle  string
	BulletPoints  []string
	TemplateType  model.TemplateType
	Style         model.PresentationStyle
	Language      string
	ContentLength model.ContentLength
	ImageStyle    string
}

// Generate returns content conforming to the section's template schema. The
// returned error is always nil when the deterministic fallback engages; only
// a cancelled context propagates.
func (g *SlideGenerator) Generate(ctx context.Context, req SlideRequest) (*SlideContent, error) {
	systemPrompt := g.buildSystemPrompt(req)
	userInput := fmt.Sprintf("Section title: %s\nOutline bullet points:\n%s", req.SectionTitle, formatBullets(req.BulletPoints))

	temperature := 0.7
	content, err := g.callModel(ctx, g.primaryModel, systemPrompt, userInput, ai.Params{Temperature: &temperature})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn("Primary slide generation failed, retrying with fallback model",
			zap.String("section", req.SectionTitle),
			zap.Error(err))
		relaxedTemp := 0.5
		content, err = g.callModel(ctx, g.fallbackModel, systemPrompt, userInput, ai.Params{Temperature: &relaxedTemp})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			g.logger.Error("Both model calls failed, using deterministic fallback content",
				zap.String("section", req.SectionTitle),
				zap.Error(err))
			return FallbackContent(req.SectionTitle, req.BulletPoints), nil
		}
	}

	return content, nil
}

func (g *SlideGenerator) callModel(ctx context.Context, modelName, systemPrompt, userInput string, params ai.Params) (*SlideContent, error) {
	raw, _, err := g.client.GenerateJSON(ctx, modelName, systemPrompt, userInput, params)
	if err != nil {
		return nil, err
	}

	var content SlideContent
	if err := json.Unmarshal([]byte(cleanJSONResponse(raw)), &content); err != nil {
		return nil, fmt.Errorf("%w: malformed slide JSON: %v", model.ErrAIGenerationFailed, err)
	}
	if strings.TrimSpace(content.Title) == "" && strings.TrimSpace(content.Content) == "" && len(content.Columns) == 0 {
		return nil, fmt.Errorf("%w: slide content is empty", model.ErrAIGenerationFailed)
	}
	return &content, nil
}

func (g *SlideGenerator) buildSystemPrompt(req SlideRequest) string {
	schema, _ := json.Marshal(deck.SchemaFor(req.TemplateType))

	var b strings.Builder
	b.WriteString("You are writing the final content for one presentation slide.\n")
	b.WriteString("Do not copy the outline bullet points verbatim; rewrite and expand them.\n")
	b.WriteString("Choose between bullet-list style and prose depending on what fits the content.\n")
	fmt.Fprintf(&b, "%s\n", LengthGuideline(req.ContentLength))
	fmt.Fprintf(&b, "Tone: %s. Write in %s.\n", ToneForStyle(req.Style), LanguageName(req.Language))
	if req.ImageStyle != "" && deck.IsImage(req.TemplateType) {
		fmt.Fprintf(&b, "The imagePrompt should describe an illustration in %s style.\n", req.ImageStyle)
	}
	fmt.Fprintf(&b, "Respond with a JSON object matching this schema: %s", string(schema))
	return b.String()
}

// FallbackContent builds the deterministic local rendering used when both
// model calls fail: a heading plus an unordered list of the outline bullets.
// Byte-for-byte reproducible for identical inputs.
func FallbackContent(sectionTitle string, bullets []string) *SlideContent {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(sectionTitle))
	b.WriteString("<ul>")
	for _, bullet := range bullets {
		fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(bullet))
	}
	b.WriteString("</ul>")

	return &SlideContent{
		Title:   sectionTitle,
		Content: b.String(),
	}
}
