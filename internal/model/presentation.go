package model

import (
	"time"

	"github.com/google/uuid"
)

// TemplateType identifies a slide layout. Every section of an outline and every
// slide carries exactly one.
type TemplateType string

const (
	TemplateAccentLeft         TemplateType = "accent-left"
	TemplateAccentRight        TemplateType = "accent-right"
	TemplateBullets            TemplateType = "bullets"
	TemplateBulletsWithImage   TemplateType = "bullets-with-image"
	TemplateParagraph          TemplateType = "paragraph"
	TemplateTwoColumns         TemplateType = "two-columns"
	TemplateTwoColumnsHeadings TemplateType = "two-columns-with-headings"
	TemplateThreeColumns       TemplateType = "three-columns"
	TemplateThreeColumnsHead   TemplateType = "three-columns-with-headings"
	TemplateFourColumns        TemplateType = "four-columns"
	TemplateFourColumnsHead    TemplateType = "four-columns-with-headings"
	TemplateTimeline           TemplateType = "timeline"
	TemplateQuote              TemplateType = "quote"
	TemplateBlankCard          TemplateType = "blank-card"
)

// PresentationStatus tracks the lifecycle of a presentation document.
type PresentationStatus string

const (
	StatusDraft      PresentationStatus = "draft"
	StatusGenerating PresentationStatus = "generating"
	StatusCompleted  PresentationStatus = "completed"
	StatusError      PresentationStatus = "error"
)

// PresentationStyle is the requested tone of the generated deck.
type PresentationStyle string

const (
	StyleDefault      PresentationStyle = "default"
	StyleModern       PresentationStyle = "modern"
	StyleMinimal      PresentationStyle = "minimal"
	StyleCreative     PresentationStyle = "creative"
	StyleProfessional PresentationStyle = "professional"
)

// ValidStyle reports whether s is one of the supported styles.
func ValidStyle(s PresentationStyle) bool {
	switch s {
	case StyleDefault, StyleModern, StyleMinimal, StyleCreative, StyleProfessional:
		return true
	}
	return false
}

// ContentLength selects the per-slide verbosity budget.
type ContentLength string

const (
	LengthBrief    ContentLength = "brief"
	LengthMedium   ContentLength = "medium"
	LengthDetailed ContentLength = "detailed"
)

// ValidContentLength reports whether l is one of the supported tiers.
func ValidContentLength(l ContentLength) bool {
	switch l {
	case LengthBrief, LengthMedium, LengthDetailed:
		return true
	}
	return false
}

// OutlineSection is one entry of a generated outline: a slide-to-be.
type OutlineSection struct {
	ID           uuid.UUID    `json:"id"`
	Title        string       `json:"title"`
	BulletPoints []string     `json:"bulletPoints"`
	TemplateType TemplateType `json:"templateType"`
}

// Outline is the structured result of the first generation step.
type Outline struct {
	Title    string           `json:"title"`
	Sections []OutlineSection `json:"sections"`
}

// GenerationRequest carries the user-supplied parameters of one deck generation.
type GenerationRequest struct {
	Prompt          string            `json:"prompt"`
	SlideCount      int               `json:"slideCount"`
	Style           PresentationStyle `json:"style"`
	Language        string            `json:"language"`
	ContentLength   ContentLength     `json:"contentLength"`
	Theme           string            `json:"theme"`
	ImageStyle      string            `json:"imageStyle"`
	EnableWebSearch bool              `json:"enableBrowserSearch"`
}

// Presentation is the persisted deck document.
type Presentation struct {
	ID            uuid.UUID          `json:"id" db:"id"`
	UserID        *uuid.UUID         `json:"userId,omitempty" db:"user_id"`
	Prompt        string             `json:"prompt" db:"prompt"`
	SlideCount    int                `json:"slideCount" db:"slide_count"`
	Style         PresentationStyle  `json:"style" db:"style"`
	Language      string             `json:"language" db:"language"`
	ContentLength ContentLength      `json:"contentLength" db:"content_length"`
	Theme         string             `json:"theme" db:"theme"`
	ImageStyle    string             `json:"imageStyle" db:"image_style"`
	Status        PresentationStatus `json:"status" db:"status"`
	Outline       *Outline           `json:"outline,omitempty" db:"-"`
	CreatedAt     time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time          `json:"updatedAt" db:"updated_at"`
}

// Slide is the persisted, rendered unit corresponding one-to-one with an
// outline section after content generation. Position defines order and stays
// contiguous within a presentation after every reorder.
type Slide struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	PresentationID    uuid.UUID         `json:"presentationId" db:"presentation_id"`
	TemplateType      TemplateType      `json:"templateType" db:"template_type"`
	Title             string            `json:"title" db:"title"`
	Content           string            `json:"content" db:"content"`
	BulletPoints      []string          `json:"bulletPoints" db:"-"`
	ExtraFields       map[string]string `json:"extraFields,omitempty" db:"-"`
	ImageURL          *string           `json:"imageUrl,omitempty" db:"image_url"`
	ImagePrompt       *string           `json:"imagePrompt,omitempty" db:"image_prompt"`
	Position          int               `json:"position" db:"position"`
	ContentGenerating bool              `json:"contentGenerating" db:"content_generating"`
	ImageGenerating   bool              `json:"imageGenerating" db:"image_generating"`
}

// NeedsImage reports whether the slide still waits for an image.
func (s *Slide) NeedsImage() bool {
	return s.ImagePrompt != nil && *s.ImagePrompt != "" && (s.ImageURL == nil || *s.ImageURL == "")
}

// Document bundles a presentation with its slides; this is the unit the
// document store caches and syncs.
type Document struct {
	Presentation Presentation `json:"presentation"`
	Slides       []Slide      `json:"slides"`
}
