package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"slideforge/internal/model"
)

var _ SlideRepository = (*pgSlideRepository)(nil)

type pgSlideRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgSlideRepository creates a PostgreSQL-backed SlideRepository. It takes
// the pool directly because Reorder runs inside a transaction.
func NewPgSlideRepository(pool *pgxpool.Pool, logger *zap.Logger) SlideRepository {
	return &pgSlideRepository{
		pool:   pool,
		logger: logger.Named("PgSlideRepo"),
	}
}

const slideColumns = `id, presentation_id, template_type, title, content, bullet_points, extra_fields, image_url, image_prompt, position, content_generating, image_generating`

func (r *pgSlideRepository) Create(ctx context.Context, s *model.Slide) error {
	bullets, extras, err := marshalSlideJSON(s)
	if err != nil {
		return err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	query := `INSERT INTO slides (` + slideColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = r.pool.Exec(ctx, query,
		s.ID, s.PresentationID, s.TemplateType, s.Title, s.Content,
		bullets, extras, s.ImageURL, s.ImagePrompt, s.Position,
		s.ContentGenerating, s.ImageGenerating,
	)
	if err != nil {
		r.logger.Error("Failed to create slide in postgres", zap.Error(err), zap.String("slideID", s.ID.String()))
		return fmt.Errorf("failed to create slide in postgres: %w", err)
	}
	return nil
}

func (r *pgSlideRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slide, error) {
	query := `SELECT ` + slideColumns + ` FROM slides WHERE id = $1`
	s, err := scanSlide(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrSlideNotFound
		}
		r.logger.Error("Failed to get slide from postgres", zap.Error(err), zap.String("slideID", id.String()))
		return nil, fmt.Errorf("failed to get slide from postgres: %w", err)
	}
	return s, nil
}

func (r *pgSlideRepository) ListByPresentation(ctx context.Context, presentationID uuid.UUID) ([]model.Slide, error) {
	query := `SELECT ` + slideColumns + ` FROM slides WHERE presentation_id = $1 ORDER BY position`
	return r.list(ctx, query, presentationID)
}

// ListPendingImages returns slides that have an image prompt but no image yet.
func (r *pgSlideRepository) ListPendingImages(ctx context.Context, presentationID uuid.UUID) ([]model.Slide, error) {
	query := `SELECT ` + slideColumns + ` FROM slides
		WHERE presentation_id = $1 AND image_prompt IS NOT NULL AND image_prompt <> '' AND (image_url IS NULL OR image_url = '')
		ORDER BY position`
	return r.list(ctx, query, presentationID)
}

func (r *pgSlideRepository) list(ctx context.Context, query string, args ...any) ([]model.Slide, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list slides from postgres", zap.Error(err))
		return nil, fmt.Errorf("failed to list slides from postgres: %w", err)
	}
	defer rows.Close()

	var out []model.Slide
	for rows.Next() {
		s, err := scanSlide(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slide row: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *pgSlideRepository) Update(ctx context.Context, s *model.Slide) error {
	bullets, extras, err := marshalSlideJSON(s)
	if err != nil {
		return err
	}
	query := `UPDATE slides SET template_type = $2, title = $3, content = $4, bullet_points = $5,
		extra_fields = $6, image_url = $7, image_prompt = $8, content_generating = $9, image_generating = $10
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query,
		s.ID, s.TemplateType, s.Title, s.Content, bullets, extras,
		s.ImageURL, s.ImagePrompt, s.ContentGenerating, s.ImageGenerating,
	)
	if err != nil {
		r.logger.Error("Failed to update slide in postgres", zap.Error(err), zap.String("slideID", s.ID.String()))
		return fmt.Errorf("failed to update slide in postgres: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrSlideNotFound
	}
	return nil
}

func (r *pgSlideRepository) SetImageURL(ctx context.Context, slideID uuid.UUID, imageURL string) error {
	query := `UPDATE slides SET image_url = $2, image_generating = false WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, slideID, imageURL)
	if err != nil {
		r.logger.Error("Failed to set slide image URL", zap.Error(err), zap.String("slideID", slideID.String()))
		return fmt.Errorf("failed to set slide image URL: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrSlideNotFound
	}
	return nil
}

// Reorder renumbers the presentation's slides to match orderedIDs. Positions
// end up contiguous from 0 in a single transaction; a partial reorder never
// becomes visible.
func (r *pgSlideRepository) Reorder(ctx context.Context, presentationID uuid.UUID, orderedIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin reorder transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Park positions out of the way first so the unique index on
	// (presentation_id, position) never trips mid-renumber.
	if _, err := tx.Exec(ctx, `UPDATE slides SET position = position + 10000 WHERE presentation_id = $1`, presentationID); err != nil {
		return fmt.Errorf("failed to stage slide positions: %w", err)
	}

	for position, id := range orderedIDs {
		tag, err := tx.Exec(ctx,
			`UPDATE slides SET position = $3 WHERE id = $1 AND presentation_id = $2`,
			id, presentationID, position,
		)
		if err != nil {
			return fmt.Errorf("failed to renumber slide %s: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: slide %s does not belong to presentation %s", model.ErrSlideNotFound, id, presentationID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reorder transaction: %w", err)
	}
	return nil
}

type slideRow interface {
	Scan(dest ...any) error
}

func scanSlide(row slideRow) (*model.Slide, error) {
	s := &model.Slide{}
	var bullets, extras []byte
	err := row.Scan(
		&s.ID, &s.PresentationID, &s.TemplateType, &s.Title, &s.Content,
		&bullets, &extras, &s.ImageURL, &s.ImagePrompt, &s.Position,
		&s.ContentGenerating, &s.ImageGenerating,
	)
	if err != nil {
		return nil, err
	}
	if len(bullets) > 0 {
		if err := json.Unmarshal(bullets, &s.BulletPoints); err != nil {
			return nil, fmt.Errorf("failed to unmarshal slide bullet points: %w", err)
		}
	}
	if len(extras) > 0 {
		if err := json.Unmarshal(extras, &s.ExtraFields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal slide extra fields: %w", err)
		}
	}
	return s, nil
}

func marshalSlideJSON(s *model.Slide) (bullets, extras []byte, err error) {
	if s.BulletPoints != nil {
		if bullets, err = json.Marshal(s.BulletPoints); err != nil {
			return nil, nil, fmt.Errorf("failed to marshal slide bullet points: %w", err)
		}
	}
	if s.ExtraFields != nil {
		if extras, err = json.Marshal(s.ExtraFields); err != nil {
			return nil, nil, fmt.Errorf("failed to marshal slide extra fields: %w", err)
		}
	}
	return bullets, extras, nil
}
