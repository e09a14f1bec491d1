package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"slideforge/internal/model"
	"slideforge/internal/repository"
)

// postgresTier is the authoritative storage level.
type postgresTier struct {
	presentations repository.PresentationRepository
	slides        repository.SlideRepository
	logger        *zap.Logger
}

// NewPostgresTier creates the authoritative tier on top of the repositories.
func NewPostgresTier(presentations repository.PresentationRepository, slides repository.SlideRepository, logger *zap.Logger) Tier {
	return &postgresTier{
		presentations: presentations,
		slides:        slides,
		logger:        logger.Named("PgDocTier"),
	}
}

func (t *postgresTier) Load(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	p, err := t.presentations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	slides, err := t.slides.ListByPresentation(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.Document{Presentation: *p, Slides: slides}, nil
}

// Store writes the full document down: outline and status on the
// presentation, then each slide (update, or insert when the slide is new).
func (t *postgresTier) Store(ctx context.Context, doc *model.Document) error {
	if err := t.presentations.UpdateOutline(ctx, doc.Presentation.ID, doc.Presentation.Outline); err != nil {
		if errors.Is(err, model.ErrPresentationNotFound) {
			p := doc.Presentation
			if err := t.presentations.Create(ctx, &p); err != nil {
				return fmt.Errorf("failed to create presentation during sync: %w", err)
			}
		} else {
			return err
		}
	}
	if err := t.presentations.UpdateStatus(ctx, doc.Presentation.ID, doc.Presentation.Status); err != nil {
		return err
	}

	for i := range doc.Slides {
		slide := &doc.Slides[i]
		err := t.slides.Update(ctx, slide)
		if errors.Is(err, model.ErrSlideNotFound) {
			err = t.slides.Create(ctx, slide)
		}
		if err != nil {
			return fmt.Errorf("failed to sync slide %s: %w", slide.ID, err)
		}
	}
	return nil
}

func (t *postgresTier) Evict(ctx context.Context, id uuid.UUID) error {
	return t.presentations.Delete(ctx, id)
}
