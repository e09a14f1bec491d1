package generation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"slideforge/internal/model"
)

// maxPromptLength caps the user prompt embedded into the outline request so a
// single oversized paste cannot blow the model input limit.
const maxPromptLength = 1500

// sentenceBoundaryRatio: truncation prefers the nearest sentence boundary past
// this share of the limit, falling back to a hard cut.
const sentenceBoundaryRatio = 0.7

// TruncatePrompt shortens the prompt to maxPromptLength characters. When a
// sentence boundary exists past 70% of the limit, the cut lands right after
// it; otherwise the text is cut hard at the limit. Truncation appends an
// ellipsis either way.
func TruncatePrompt(prompt string) string {
	if len(prompt) <= maxPromptLength {
		return prompt
	}

	// Back the cut off to a rune boundary so it never splits a multibyte
	// character.
	cutAt := maxPromptLength
	for cutAt > 0 && !utf8.RuneStart(prompt[cutAt]) {
		cutAt--
	}
	window := prompt[:cutAt]
	minBoundary := int(float64(maxPromptLength) * sentenceBoundaryRatio)

	cut := -1
	for i := len(window) - 1; i >= minBoundary; i-- {
		switch window[i] {
		case '.', '!', '?':
			cut = i + 1
		}
		if cut >= 0 {
			break
		}
	}

	if cut >= 0 {
		return strings.TrimSpace(window[:cut]) + "..."
	}
	return window + "..."
}

var styleTones = map[model.PresentationStyle]string{
	model.StyleDefault:      "clear and balanced",
	model.StyleModern:       "bold, punchy and forward-looking",
	model.StyleMinimal:      "sparse and to the point, no filler",
	model.StyleCreative:     "playful, vivid and metaphor-rich",
	model.StyleProfessional: "formal, precise and business-appropriate",
}

// ToneForStyle maps a style to the tone phrase embedded into system prompts.
func ToneForStyle(style model.PresentationStyle) string {
	if tone, ok := styleTones[style]; ok {
		return tone
	}
	return styleTones[model.StyleProfessional]
}

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
	"uk": "Ukrainian",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"tr": "Turkish",
	"pl": "Polish",
	"nl": "Dutch",
}

// LanguageName resolves a language code to its display name; unknown codes
// are passed through so the model still gets a usable instruction.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

var lengthGuidelines = map[model.ContentLength]string{
	model.LengthBrief:    "Keep it brief: at most 30 words or 2 short sentences per slide.",
	model.LengthMedium:   "Medium length: around 60 words or 3-4 sentences per slide.",
	model.LengthDetailed: "Detailed: up to 120 words or 5-6 sentences per slide.",
}

// LengthGuideline returns the verbosity instruction for the given tier.
func LengthGuideline(length model.ContentLength) string {
	if g, ok := lengthGuidelines[length]; ok {
		return g
	}
	return lengthGuidelines[model.LengthMedium]
}

func formatBullets(bullets []string) string {
	var b strings.Builder
	for _, bullet := range bullets {
		fmt.Fprintf(&b, "- %s\n", bullet)
	}
	return b.String()
}
