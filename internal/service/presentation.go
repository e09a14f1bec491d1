package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"slideforge/internal/deck"
	"slideforge/internal/docstore"
	"slideforge/internal/generation"
	"slideforge/internal/messaging"
	"slideforge/internal/model"
	"slideforge/internal/repository"
	"slideforge/internal/ws"
)

// Slide count bounds for one generation request.
const (
	MinSlideCount     = 3
	MaxSlideCount     = 20
	DefaultSlideCount = 5
)

// MaxPromptLength rejects pasted walls of text outright; anything under it is
// still truncated to the model input window downstream.
const MaxPromptLength = 10000

// PresentationService runs the generation pipeline and owns presentation CRUD.
type PresentationService struct {
	presentations repository.PresentationRepository
	slides        repository.SlideRepository
	credits       repository.CreditRepository
	outlineGen    *generation.OutlineGenerator
	slideGen      *generation.SlideGenerator
	docs          *docstore.Store
	publisher     messaging.ImageTaskPublisher
	hub           *ws.Hub
	logger        *zap.Logger
}

// NewPresentationService wires a PresentationService. The hub and publisher
// may be nil in contexts that need neither progress events nor images.
func NewPresentationService(
	presentations repository.PresentationRepository,
	slides repository.SlideRepository,
	credits repository.CreditRepository,
	outlineGen *generation.OutlineGenerator,
	slideGen *generation.SlideGenerator,
	docs *docstore.Store,
	publisher messaging.ImageTaskPublisher,
	hub *ws.Hub,
	logger *zap.Logger,
) *PresentationService {
	return &PresentationService{
		presentations: presentations,
		slides:        slides,
		credits:       credits,
		outlineGen:    outlineGen,
		slideGen:      slideGen,
		docs:          docs,
		publisher:     publisher,
		hub:           hub,
		logger:        logger.Named("PresentationService"),
	}
}

// NormalizeRequest validates the request in place and fills defaults.
func NormalizeRequest(req *model.GenerationRequest) error {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", model.ErrInvalidInput)
	}
	if len(req.Prompt) > MaxPromptLength {
		return fmt.Errorf("%w: prompt exceeds %d characters", model.ErrPromptTooLong, MaxPromptLength)
	}
	if req.SlideCount == 0 {
		req.SlideCount = DefaultSlideCount
	}
	if req.SlideCount < MinSlideCount || req.SlideCount > MaxSlideCount {
		return fmt.Errorf("%w: slideCount must be between %d and %d", model.ErrInvalidInput, MinSlideCount, MaxSlideCount)
	}
	if req.Style == "" {
		req.Style = model.StyleProfessional
	}
	if !model.ValidStyle(req.Style) {
		return fmt.Errorf("%w: unknown style %q", model.ErrInvalidInput, req.Style)
	}
	if req.Language == "" {
		req.Language = "en"
	}
	if req.ContentLength == "" {
		req.ContentLength = model.LengthMedium
	}
	if !model.ValidContentLength(req.ContentLength) {
		return fmt.Errorf("%w: unknown contentLength %q", model.ErrInvalidInput, req.ContentLength)
	}
	return nil
}

// Generate runs the full pipeline synchronously: deduct credits, create the
// presentation record, generate the outline then every slide in order, enqueue
// image tasks and mark the document completed. Credits are refunded when the
// outline fails; a single slide failure is absorbed by the deterministic
// fallback and never aborts the deck.
func (s *PresentationService) Generate(ctx context.Context, userID uuid.UUID, req model.GenerationRequest) (*model.Document, error) {
	if err := NormalizeRequest(&req); err != nil {
		return nil, err
	}

	presentationID := uuid.New()
	if _, err := s.credits.Deduct(ctx, userID, model.CreditCostPresentationCreate, model.ActionPresentationCreate,
		map[string]string{"presentationId": presentationID.String()}); err != nil {
		return nil, err
	}

	p := &model.Presentation{
		ID:            presentationID,
		UserID:        &userID,
		Prompt:        req.Prompt,
		SlideCount:    req.SlideCount,
		Style:         req.Style,
		Language:      req.Language,
		ContentLength: req.ContentLength,
		Theme:         req.Theme,
		ImageStyle:    req.ImageStyle,
		Status:        model.StatusGenerating,
	}
	if err := s.presentations.Create(ctx, p); err != nil {
		s.refund(ctx, userID, presentationID, "create_failed")
		return nil, err
	}

	outline, err := s.outlineGen.Generate(ctx, req)
	if err != nil {
		s.logger.Error("Outline generation failed",
			zap.String("presentationID", p.ID.String()), zap.Error(err))
		s.refund(ctx, userID, p.ID, "outline_failed")
		s.failPresentation(ctx, userID, p.ID, err)
		return nil, err
	}
	p.Outline = outline
	if err := s.presentations.UpdateOutline(ctx, p.ID, outline); err != nil {
		return nil, err
	}

	doc := &model.Document{Presentation: *p}
	for i, section := range outline.Sections {
		slide, err := s.generateSection(ctx, p, section, i)
		if err != nil {
			// Only context cancellation reaches here.
			s.failPresentation(ctx, userID, p.ID, err)
			return nil, err
		}
		doc.Slides = append(doc.Slides, *slide)
		s.publish(userID, ws.Event{Type: ws.EventSlideCreated, PresentationID: p.ID, Payload: slide})
	}

	if err := s.presentations.UpdateStatus(ctx, p.ID, model.StatusCompleted); err != nil {
		return nil, err
	}
	p.Status = model.StatusCompleted
	doc.Presentation = *p

	if s.docs != nil {
		if err := s.docs.Put(ctx, doc); err != nil {
			s.logger.Warn("Failed to seed document store", zap.String("presentationID", p.ID.String()), zap.Error(err))
		}
	}

	s.enqueueImages(ctx, userID, p, doc.Slides)
	s.publish(userID, ws.Event{Type: ws.EventPresentationCompleted, PresentationID: p.ID})

	s.logger.Info("Presentation generated",
		zap.String("presentationID", p.ID.String()),
		zap.Int("slides", len(doc.Slides)))
	return doc, nil
}

func (s *PresentationService) generateSection(ctx context.Context, p *model.Presentation, section model.OutlineSection, position int) (*model.Slide, error) {
	content, err := s.slideGen.Generate(ctx, generation.SlideRequest{
		SectionTitle:  section.Title,
		BulletPoints:  section.BulletPoints,
		TemplateType:  section.TemplateType,
		Style:         p.Style,
		Language:      p.Language,
		ContentLength: p.ContentLength,
		ImageStyle:    p.ImageStyle,
	})
	if err != nil {
		return nil, err
	}

	slide := &model.Slide{
		ID:             section.ID,
		PresentationID: p.ID,
		TemplateType:   section.TemplateType,
		Title:          content.Title,
		Content:        content.Content,
		BulletPoints:   section.BulletPoints,
		Position:       position,
	}
	if slide.Title == "" {
		slide.Title = section.Title
	}
	if len(content.Columns) > 0 {
		slide.ExtraFields = make(map[string]string, len(content.Columns)*2)
		for i, col := range content.Columns {
			if col.Heading != "" {
				slide.ExtraFields[fmt.Sprintf("column%dHeading", i+1)] = col.Heading
			}
			slide.ExtraFields[fmt.Sprintf("column%dText", i+1)] = col.Text
		}
	}
	if deck.IsImage(section.TemplateType) && content.ImagePrompt != "" {
		prompt := content.ImagePrompt
		slide.ImagePrompt = &prompt
		slide.ImageGenerating = true
	}

	if err := s.slides.Create(ctx, slide); err != nil {
		return nil, err
	}
	return slide, nil
}

// enqueueImages publishes one task per slide that still waits for an image.
// Publish failures are logged and skipped: images are best-effort and must
// never fail a completed presentation.
func (s *PresentationService) enqueueImages(ctx context.Context, userID uuid.UUID, p *model.Presentation, slides []model.Slide) {
	if s.publisher == nil {
		return
	}
	for i := range slides {
		slide := &slides[i]
		if !slide.NeedsImage() {
			continue
		}
		task := messaging.ImageTaskPayload{
			TaskID:         uuid.NewString(),
			PresentationID: p.ID,
			SlideID:        slide.ID,
			UserID:         userID,
			Prompt:         *slide.ImagePrompt,
			TemplateType:   string(slide.TemplateType),
			Theme:          p.Theme,
			ImageStyle:     p.ImageStyle,
		}
		if err := s.publisher.Publish(ctx, task); err != nil {
			s.logger.Error("Failed to enqueue image task",
				zap.String("slideID", slide.ID.String()), zap.Error(err))
		}
	}
}

func (s *PresentationService) refund(ctx context.Context, userID, presentationID uuid.UUID, reason string) {
	if _, err := s.credits.Refund(ctx, userID, model.CreditCostPresentationCreate,
		map[string]string{"presentationId": presentationID.String(), "reason": reason}); err != nil {
		s.logger.Error("Failed to refund credits",
			zap.String("userID", userID.String()),
			zap.String("presentationID", presentationID.String()),
			zap.Error(err))
	}
}

func (s *PresentationService) failPresentation(ctx context.Context, userID, presentationID uuid.UUID, cause error) {
	if err := s.presentations.UpdateStatus(ctx, presentationID, model.StatusError); err != nil {
		s.logger.Error("Failed to mark presentation as errored",
			zap.String("presentationID", presentationID.String()), zap.Error(err))
	}
	s.publish(userID, ws.Event{
		Type:           ws.EventPresentationError,
		PresentationID: presentationID,
		Payload:        map[string]string{"error": cause.Error()},
	})
}

func (s *PresentationService) publish(userID uuid.UUID, event ws.Event) {
	if s.hub != nil {
		s.hub.PublishToUser(userID, event)
	}
}

// Get returns the full document, checking ownership.
func (s *PresentationService) Get(ctx context.Context, presentationID, userID uuid.UUID) (*model.Document, error) {
	doc, err := s.loadDocument(ctx, presentationID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(&doc.Presentation, userID); err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns the user's presentations, newest first, without slides.
func (s *PresentationService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Presentation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.presentations.ListByUser(ctx, userID, limit, offset)
}

// Delete removes the presentation and evicts it from every storage tier.
func (s *PresentationService) Delete(ctx context.Context, presentationID, userID uuid.UUID) error {
	p, err := s.presentations.GetByID(ctx, presentationID)
	if err != nil {
		return err
	}
	if err := s.checkOwner(p, userID); err != nil {
		return err
	}
	if s.docs != nil {
		return s.docs.Delete(ctx, presentationID)
	}
	return s.presentations.Delete(ctx, presentationID)
}

// SaveDocument records a client-side edit of the whole document.
func (s *PresentationService) SaveDocument(ctx context.Context, userID uuid.UUID, doc *model.Document) error {
	current, err := s.presentations.GetByID(ctx, doc.Presentation.ID)
	if err != nil {
		return err
	}
	if err := s.checkOwner(current, userID); err != nil {
		return err
	}
	if s.docs != nil {
		return s.docs.Put(ctx, doc)
	}
	return nil
}

// UpdateSlide persists an edit of one slide.
func (s *PresentationService) UpdateSlide(ctx context.Context, userID uuid.UUID, slide *model.Slide) error {
	p, err := s.presentations.GetByID(ctx, slide.PresentationID)
	if err != nil {
		return err
	}
	if err := s.checkOwner(p, userID); err != nil {
		return err
	}
	return s.slides.Update(ctx, slide)
}

// ReorderSlides applies a new slide order; positions end up contiguous.
func (s *PresentationService) ReorderSlides(ctx context.Context, presentationID, userID uuid.UUID, orderedIDs []uuid.UUID) error {
	p, err := s.presentations.GetByID(ctx, presentationID)
	if err != nil {
		return err
	}
	if err := s.checkOwner(p, userID); err != nil {
		return err
	}
	return s.slides.Reorder(ctx, presentationID, orderedIDs)
}

// RegenerateSlide re-runs content generation for one existing slide.
func (s *PresentationService) RegenerateSlide(ctx context.Context, slideID, userID uuid.UUID) (*model.Slide, error) {
	slide, err := s.slides.GetByID(ctx, slideID)
	if err != nil {
		return nil, err
	}
	p, err := s.presentations.GetByID(ctx, slide.PresentationID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(p, userID); err != nil {
		return nil, err
	}

	content, err := s.slideGen.Generate(ctx, generation.SlideRequest{
		SectionTitle:  slide.Title,
		BulletPoints:  slide.BulletPoints,
		TemplateType:  slide.TemplateType,
		Style:         p.Style,
		Language:      p.Language,
		ContentLength: p.ContentLength,
		ImageStyle:    p.ImageStyle,
	})
	if err != nil {
		return nil, err
	}

	slide.Title = content.Title
	slide.Content = content.Content
	if deck.IsImage(slide.TemplateType) && content.ImagePrompt != "" {
		prompt := content.ImagePrompt
		slide.ImagePrompt = &prompt
		slide.ImageURL = nil
	}
	if err := s.slides.Update(ctx, slide); err != nil {
		return nil, err
	}
	return slide, nil
}

// GenerateSlideContent runs the slide generator for a single section without
// touching any stored presentation. The editor uses it to expand or redo one
// slide client-side.
func (s *PresentationService) GenerateSlideContent(ctx context.Context, req generation.SlideRequest) (*generation.SlideContent, error) {
	req.SectionTitle = strings.TrimSpace(req.SectionTitle)
	if req.SectionTitle == "" {
		return nil, fmt.Errorf("%w: sectionTitle is required", model.ErrInvalidInput)
	}
	if req.Style == "" {
		req.Style = model.StyleProfessional
	}
	if req.Language == "" {
		req.Language = "en"
	}
	if req.ContentLength == "" {
		req.ContentLength = model.LengthMedium
	}
	return s.slideGen.Generate(ctx, req)
}

// RequestSlideImage enqueues (or re-enqueues) image generation for one slide.
func (s *PresentationService) RequestSlideImage(ctx context.Context, slideID, userID uuid.UUID, prompt string) error {
	slide, err := s.slides.GetByID(ctx, slideID)
	if err != nil {
		return err
	}
	p, err := s.presentations.GetByID(ctx, slide.PresentationID)
	if err != nil {
		return err
	}
	if err := s.checkOwner(p, userID); err != nil {
		return err
	}
	if s.publisher == nil {
		return errors.New("image generation is not configured")
	}

	if prompt == "" {
		if slide.ImagePrompt == nil || *slide.ImagePrompt == "" {
			return fmt.Errorf("%w: slide has no image prompt", model.ErrInvalidInput)
		}
		prompt = *slide.ImagePrompt
	} else {
		slide.ImagePrompt = &prompt
		slide.ImageGenerating = true
		if err := s.slides.Update(ctx, slide); err != nil {
			return err
		}
	}

	return s.publisher.Publish(ctx, messaging.ImageTaskPayload{
		TaskID:         uuid.NewString(),
		PresentationID: p.ID,
		SlideID:        slide.ID,
		UserID:         userID,
		Prompt:         prompt,
		TemplateType:   string(slide.TemplateType),
		Theme:          p.Theme,
		ImageStyle:     p.ImageStyle,
	})
}

func (s *PresentationService) loadDocument(ctx context.Context, presentationID uuid.UUID) (*model.Document, error) {
	if s.docs != nil {
		return s.docs.Get(ctx, presentationID)
	}
	p, err := s.presentations.GetByID(ctx, presentationID)
	if err != nil {
		return nil, err
	}
	slides, err := s.slides.ListByPresentation(ctx, presentationID)
	if err != nil {
		return nil, err
	}
	return &model.Document{Presentation: *p, Slides: slides}, nil
}

func (s *PresentationService) checkOwner(p *model.Presentation, userID uuid.UUID) error {
	if p.UserID == nil || *p.UserID != userID {
		return model.ErrForbidden
	}
	return nil
}
