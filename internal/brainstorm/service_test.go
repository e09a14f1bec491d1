package brainstorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdeaToPrompt(t *testing.T) {
	idea := Idea{
		Title:       "Urban beekeeping",
		Description: "Why cities are surprisingly good for bees.",
		KeyPoints:   []string{"rooftop hives", "pesticide-free forage"},
	}
	assert.Equal(t,
		"Urban beekeeping. Why cities are surprisingly good for bees. Cover: rooftop hives; pesticide-free forage.",
		idea.ToPrompt())
}

func TestIdeaToPromptTitleOnly(t *testing.T) {
	idea := Idea{Title: "Urban beekeeping"}
	assert.Equal(t, "Urban beekeeping", idea.ToPrompt())
}
