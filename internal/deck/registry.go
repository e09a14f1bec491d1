package deck

import "slideforge/internal/model"

// AllTemplates is the full set of supported slide layouts.
var AllTemplates = []model.TemplateType{
	model.TemplateAccentLeft,
	model.TemplateAccentRight,
	model.TemplateBullets,
	model.TemplateBulletsWithImage,
	model.TemplateParagraph,
	model.TemplateTwoColumns,
	model.TemplateTwoColumnsHeadings,
	model.TemplateThreeColumns,
	model.TemplateThreeColumnsHead,
	model.TemplateFourColumns,
	model.TemplateFourColumnsHead,
	model.TemplateTimeline,
	model.TemplateQuote,
}

// AccentTemplates are the visually distinct layouts forced onto the first slide.
var AccentTemplates = []model.TemplateType{
	model.TemplateAccentLeft,
	model.TemplateAccentRight,
}

// ImageTemplates are layouts that require an illustration. The last slide of a
// deck never uses one of these.
var ImageTemplates = []model.TemplateType{
	model.TemplateAccentLeft,
	model.TemplateAccentRight,
	model.TemplateBulletsWithImage,
}

// ConclusionTemplates are preferred for the final slide.
var ConclusionTemplates = []model.TemplateType{
	model.TemplateBullets,
	model.TemplateParagraph,
	model.TemplateTwoColumns,
	model.TemplateThreeColumns,
}

// IsAccent reports whether t is one of the accent layouts.
func IsAccent(t model.TemplateType) bool { return contains(AccentTemplates, t) }

// IsImage reports whether t requires image generation.
func IsImage(t model.TemplateType) bool { return contains(ImageTemplates, t) }

// IsKnown reports whether t belongs to the supported template set.
func IsKnown(t model.TemplateType) bool { return contains(AllTemplates, t) }

func contains(set []model.TemplateType, t model.TemplateType) bool {
	for _, c := range set {
		if c == t {
			return true
		}
	}
	return false
}

// baseContentSchema is the generic "blank card" contract: a title and an HTML
// content fragment.
func baseContentSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"title": map[string]interface{}{
				"type":        "string",
				"description": "Slide title",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Slide body as an HTML fragment",
			},
		},
		"required": []string{"title", "content"},
	}
}

func withImagePrompt(schema map[string]interface{}) map[string]interface{} {
	props := schema["properties"].(map[string]interface{})
	props["imagePrompt"] = map[string]interface{}{
		"type":        "string",
		"description": "Prompt for generating the slide illustration",
	}
	return schema
}

func withColumns(schema map[string]interface{}, count int, headings bool) map[string]interface{} {
	props := schema["properties"].(map[string]interface{})
	item := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{"type": "string"},
		},
		"required": []string{"text"},
	}
	if headings {
		itemProps := item["properties"].(map[string]interface{})
		itemProps["heading"] = map[string]interface{}{"type": "string"}
		item["required"] = []string{"heading", "text"}
	}
	props["columns"] = map[string]interface{}{
		"type":     "array",
		"items":    item,
		"minItems": count,
		"maxItems": count,
	}
	schema["required"] = []string{"title", "columns"}
	return schema
}

// templateSchemas maps every supported layout to the structured-output
// contract the model must satisfy for it. Adding a template type means adding
// one entry here.
var templateSchemas = map[model.TemplateType]func() map[string]interface{}{
	model.TemplateAccentLeft:         func() map[string]interface{} { return withImagePrompt(baseContentSchema()) },
	model.TemplateAccentRight:        func() map[string]interface{} { return withImagePrompt(baseContentSchema()) },
	model.TemplateBullets:            baseContentSchema,
	model.TemplateBulletsWithImage:   func() map[string]interface{} { return withImagePrompt(baseContentSchema()) },
	model.TemplateParagraph:          baseContentSchema,
	model.TemplateTwoColumns:         func() map[string]interface{} { return withColumns(baseContentSchema(), 2, false) },
	model.TemplateTwoColumnsHeadings: func() map[string]interface{} { return withColumns(baseContentSchema(), 2, true) },
	model.TemplateThreeColumns:       func() map[string]interface{} { return withColumns(baseContentSchema(), 3, false) },
	model.TemplateThreeColumnsHead:   func() map[string]interface{} { return withColumns(baseContentSchema(), 3, true) },
	model.TemplateFourColumns:        func() map[string]interface{} { return withColumns(baseContentSchema(), 4, false) },
	model.TemplateFourColumnsHead:    func() map[string]interface{} { return withColumns(baseContentSchema(), 4, true) },
	model.TemplateTimeline:           func() map[string]interface{} { return withColumns(baseContentSchema(), 4, true) },
	model.TemplateQuote:              baseContentSchema,
}

// SchemaFor returns the structured-output schema for the given template.
// Unrecognized identifiers fall back to the blank-card schema.
func SchemaFor(t model.TemplateType) map[string]interface{} {
	if build, ok := templateSchemas[t]; ok {
		return build()
	}
	return baseContentSchema()
}
