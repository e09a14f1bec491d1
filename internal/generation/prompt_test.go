package generation

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slideforge/internal/model"
)

func TestTruncatePromptShortInputUnchanged(t *testing.T) {
	prompt := "A short prompt about space travel."
	assert.Equal(t, prompt, TruncatePrompt(prompt))

	exact := strings.Repeat("a", maxPromptLength)
	assert.Equal(t, exact, TruncatePrompt(exact), "input at exactly the limit must not be touched")
}

func TestTruncatePromptCutsAtSentenceBoundary(t *testing.T) {
	// A sentence boundary lands past 70% of the limit; the cut must follow it.
	first := strings.Repeat("a", 1200) + "."
	prompt := first + " " + strings.Repeat("b", 600)

	got := TruncatePrompt(prompt)
	assert.Equal(t, first+"...", got)
	assert.LessOrEqual(t, len(got), maxPromptLength+3)
}

func TestTruncatePromptHardCutWithoutBoundary(t *testing.T) {
	prompt := strings.Repeat("x", 3000)
	got := TruncatePrompt(prompt)
	require.Equal(t, maxPromptLength+3, len(got))
	assert.Equal(t, strings.Repeat("x", maxPromptLength)+"...", got)
}

func TestTruncatePromptHardCutKeepsValidUTF8(t *testing.T) {
	// Multibyte text with no sentence boundary; the leading ASCII byte shifts
	// every following rune off the cut offset, so the hard cut lands inside a
	// rune unless it backs off to a boundary first.
	prompt := "a" + strings.Repeat("ü", maxPromptLength)
	got := TruncatePrompt(prompt)
	assert.True(t, utf8.ValidString(got), "truncated prompt must stay valid UTF-8")
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), maxPromptLength+3)
}

func TestTruncatePromptIgnoresEarlyBoundary(t *testing.T) {
	// The only sentence boundary sits before 70% of the limit, so it must be
	// ignored in favor of a hard cut.
	prompt := strings.Repeat("a", 500) + ". " + strings.Repeat("b", 2000)
	got := TruncatePrompt(prompt)
	assert.Equal(t, maxPromptLength+3, len(got))
	assert.True(t, strings.HasSuffix(got, "b..."))
}

func TestToneForStyle(t *testing.T) {
	assert.Equal(t, styleTones[model.StyleCreative], ToneForStyle(model.StyleCreative))
	assert.Equal(t, styleTones[model.StyleProfessional], ToneForStyle(model.PresentationStyle("unmapped")))
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "German", LanguageName("de"))
	assert.Equal(t, "Spanish", LanguageName("ES"))
	assert.Equal(t, "xx", LanguageName("xx"), "unknown codes pass through")
}

func TestLengthGuidelineDefaultsToMedium(t *testing.T) {
	assert.Equal(t, lengthGuidelines[model.LengthMedium], LengthGuideline(model.ContentLength("")))
	assert.Equal(t, lengthGuidelines[model.LengthBrief], LengthGuideline(model.LengthBrief))
}
