package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"slideforge/internal/model"
	"slideforge/internal/service"
)

const toolNameCreatePresentation = "create_presentation"

var toolOrder = []string{
	toolNameCreatePresentation,
}

type toolHandler func(ctx context.Context, key *model.APIKey, args map[string]interface{}) (*toolCallResult, error)

type toolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	handler     toolHandler            `json:"-"`
}

type toolsCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

type toolCallResult struct {
	Content           []toolContentItem `json:"content"`
	StructuredContent interface{}       `json:"structuredContent,omitempty"`
	IsError           bool              `json:"isError,omitempty"`
}

type toolContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Tools holds the MCP tool implementations over the presentation pipeline.
type Tools struct {
	presentations *service.PresentationService
	credits       *service.CreditService
	logger        *zap.Logger
}

// NewTools wires the tool set.
func NewTools(presentations *service.PresentationService, credits *service.CreditService, logger *zap.Logger) *Tools {
	return &Tools{
		presentations: presentations,
		credits:       credits,
		logger:        logger.Named("MCPTools"),
	}
}

func (t *Tools) registry() map[string]toolDefinition {
	return map[string]toolDefinition{
		toolNameCreatePresentation: {
			Name:        toolNameCreatePresentation,
			Description: "Generate a complete slide presentation from a topic prompt. Costs credits; returns a summary of the generated deck.",
			InputSchema: createPresentationInputSchema(),
			handler:     t.handleCreatePresentation,
		},
	}
}

func createPresentationInputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"prompt": map[string]interface{}{
				"type":        "string",
				"description": "Topic or instructions for the presentation.",
			},
			"slideCount": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Number of slides, %d to %d.", service.MinSlideCount, service.MaxSlideCount),
				"minimum":     service.MinSlideCount,
				"maximum":     service.MaxSlideCount,
				"default":     service.DefaultSlideCount,
			},
			"style": map[string]interface{}{
				"type":    "string",
				"enum":    []string{"default", "modern", "minimal", "creative", "professional"},
				"default": "professional",
			},
			"language": map[string]interface{}{
				"type":        "string",
				"description": "ISO 639-1 language code for the deck content.",
				"default":     "en",
			},
			"contentLength": map[string]interface{}{
				"type":    "string",
				"enum":    []string{"brief", "medium", "detailed"},
				"default": "medium",
			},
			"enableBrowserSearch": map[string]interface{}{
				"type":        "boolean",
				"description": "Ground the outline in current facts via web search.",
				"default":     false,
			},
		},
		"required": []string{"prompt"},
	}
}

type createPresentationArgs struct {
	Prompt              string `json:"prompt"`
	SlideCount          int    `json:"slideCount"`
	Style               string `json:"style"`
	Language            string `json:"language"`
	ContentLength       string `json:"contentLength"`
	EnableBrowserSearch bool   `json:"enableBrowserSearch"`
}

func (t *Tools) handleCreatePresentation(ctx context.Context, key *model.APIKey, args map[string]interface{}) (*toolCallResult, error) {
	var parsed createPresentationArgs
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable arguments", model.ErrInvalidInput)
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	if strings.TrimSpace(parsed.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", model.ErrInvalidInput)
	}

	// A cheap balance pre-check keeps obviously unaffordable calls away from
	// the model entirely; the deduction inside the pipeline stays the
	// authoritative gate.
	affordable, err := t.credits.CanAfford(ctx, key.UserID, model.CreditCostPresentationCreate)
	if err != nil {
		return nil, err
	}
	if !affordable {
		return errorResult(fmt.Sprintf("Insufficient credits: creating a presentation costs %d credits.", model.CreditCostPresentationCreate)), nil
	}

	req := model.GenerationRequest{
		Prompt:          parsed.Prompt,
		SlideCount:      parsed.SlideCount,
		Style:           model.PresentationStyle(parsed.Style),
		Language:        parsed.Language,
		ContentLength:   model.ContentLength(parsed.ContentLength),
		EnableWebSearch: parsed.EnableBrowserSearch,
	}

	doc, err := t.presentations.Generate(ctx, key.UserID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidInput):
			return nil, err
		case errors.Is(err, model.ErrInsufficientCredits):
			return errorResult(fmt.Sprintf("Insufficient credits: creating a presentation costs %d credits.", model.CreditCostPresentationCreate)), nil
		case errors.Is(err, model.ErrOutlineFailed), errors.Is(err, model.ErrModelTimeout):
			return errorResult("Generation failed; your credits were refunded. Please try again."), nil
		default:
			return nil, err
		}
	}

	return &toolCallResult{
		Content:           []toolContentItem{{Type: "text", Text: summarize(doc)}},
		StructuredContent: documentSummary(doc),
	}, nil
}

func errorResult(text string) *toolCallResult {
	return &toolCallResult{
		Content: []toolContentItem{{Type: "text", Text: text}},
		IsError: true,
	}
}

// summarize renders the generated deck as human-readable text for the tool
// result.
func summarize(doc *model.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Created presentation %q (%d slides, id %s).\n",
		titleOf(doc), len(doc.Slides), doc.Presentation.ID)
	for _, slide := range doc.Slides {
		fmt.Fprintf(&b, "%d. %s [%s]\n", slide.Position+1, slide.Title, slide.TemplateType)
	}
	return strings.TrimRight(b.String(), "\n")
}

func documentSummary(doc *model.Document) map[string]interface{} {
	slides := make([]map[string]interface{}, len(doc.Slides))
	for i, slide := range doc.Slides {
		slides[i] = map[string]interface{}{
			"id":           slide.ID,
			"position":     slide.Position,
			"title":        slide.Title,
			"templateType": slide.TemplateType,
		}
	}
	return map[string]interface{}{
		"presentationId": doc.Presentation.ID,
		"title":          titleOf(doc),
		"status":         doc.Presentation.Status,
		"slides":         slides,
	}
}

func titleOf(doc *model.Document) string {
	if doc.Presentation.Outline != nil && doc.Presentation.Outline.Title != "" {
		return doc.Presentation.Outline.Title
	}
	return doc.Presentation.Prompt
}
