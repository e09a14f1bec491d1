package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slideforge/internal/model"
)

func TestEveryTemplateHasASchema(t *testing.T) {
	for _, tmpl := range AllTemplates {
		schema := SchemaFor(tmpl)
		require.NotNil(t, schema, "template %s has no schema", tmpl)
		assert.Equal(t, "object", schema["type"])
		assert.Contains(t, schema, "properties")
	}
}

func TestSchemaForUnknownFallsBackToBlankCard(t *testing.T) {
	schema := SchemaFor(model.TemplateType("made-up-layout"))
	require.NotNil(t, schema)

	props := schema["properties"].(map[string]interface{})
	assert.Contains(t, props, "title")
	assert.Contains(t, props, "content")
	assert.NotContains(t, props, "columns")
	assert.NotContains(t, props, "imagePrompt")
}

func TestImageTemplatesRequireImagePrompt(t *testing.T) {
	for _, tmpl := range ImageTemplates {
		props := SchemaFor(tmpl)["properties"].(map[string]interface{})
		assert.Contains(t, props, "imagePrompt", "image template %s must ask for an image prompt", tmpl)
	}
}

func TestColumnSchemasPinColumnCount(t *testing.T) {
	cases := map[model.TemplateType]int{
		model.TemplateTwoColumns:      2,
		model.TemplateThreeColumns:    3,
		model.TemplateFourColumns:     4,
		model.TemplateFourColumnsHead: 4,
	}
	for tmpl, want := range cases {
		props := SchemaFor(tmpl)["properties"].(map[string]interface{})
		columns := props["columns"].(map[string]interface{})
		assert.Equal(t, want, columns["minItems"], "template %s", tmpl)
		assert.Equal(t, want, columns["maxItems"], "template %s", tmpl)
	}
}

func TestClassifiers(t *testing.T) {
	assert.True(t, IsAccent(model.TemplateAccentLeft))
	assert.False(t, IsAccent(model.TemplateBullets))

	assert.True(t, IsImage(model.TemplateBulletsWithImage))
	assert.False(t, IsImage(model.TemplateParagraph))

	assert.True(t, IsKnown(model.TemplateTimeline))
	assert.False(t, IsKnown(model.TemplateType("nonsense")))
}
