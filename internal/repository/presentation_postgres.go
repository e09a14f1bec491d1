package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"slideforge/internal/model"
)

var _ PresentationRepository = (*pgPresentationRepository)(nil)

type pgPresentationRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgPresentationRepository creates a PostgreSQL-backed PresentationRepository.
func NewPgPresentationRepository(db DBTX, logger *zap.Logger) PresentationRepository {
	return &pgPresentationRepository{
		db:     db,
		logger: logger.Named("PgPresentationRepo"),
	}
}

func (r *pgPresentationRepository) Create(ctx context.Context, p *model.Presentation) error {
	outlineJSON, err := marshalOutline(p.Outline)
	if err != nil {
		return err
	}

	query := `INSERT INTO presentations
		(id, user_id, prompt, slide_count, style, language, content_length, theme, image_style, status, outline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err = r.db.QueryRow(ctx, query,
		p.ID, p.UserID, p.Prompt, p.SlideCount, p.Style, p.Language,
		p.ContentLength, p.Theme, p.ImageStyle, p.Status, outlineJSON,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create presentation in postgres", zap.Error(err), zap.String("presentationID", p.ID.String()))
		return fmt.Errorf("failed to create presentation in postgres: %w", err)
	}
	return nil
}

func (r *pgPresentationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Presentation, error) {
	query := `SELECT id, user_id, prompt, slide_count, style, language, content_length, theme, image_style, status, outline, created_at, updated_at
		FROM presentations WHERE id = $1`
	p := &model.Presentation{}
	var outlineJSON []byte
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.Prompt, &p.SlideCount, &p.Style, &p.Language,
		&p.ContentLength, &p.Theme, &p.ImageStyle, &p.Status, &outlineJSON,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPresentationNotFound
		}
		r.logger.Error("Failed to get presentation from postgres", zap.Error(err), zap.String("presentationID", id.String()))
		return nil, fmt.Errorf("failed to get presentation from postgres: %w", err)
	}
	if p.Outline, err = unmarshalOutline(outlineJSON); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pgPresentationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Presentation, error) {
	query := `SELECT id, user_id, prompt, slide_count, style, language, content_length, theme, image_style, status, outline, created_at, updated_at
		FROM presentations WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list presentations from postgres", zap.Error(err), zap.String("userID", userID.String()))
		return nil, fmt.Errorf("failed to list presentations from postgres: %w", err)
	}
	defer rows.Close()

	var out []model.Presentation
	for rows.Next() {
		var p model.Presentation
		var outlineJSON []byte
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Prompt, &p.SlideCount, &p.Style, &p.Language,
			&p.ContentLength, &p.Theme, &p.ImageStyle, &p.Status, &outlineJSON,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan presentation row: %w", err)
		}
		if p.Outline, err = unmarshalOutline(outlineJSON); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *pgPresentationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PresentationStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE presentations SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		r.logger.Error("Failed to update presentation status", zap.Error(err), zap.String("presentationID", id.String()))
		return fmt.Errorf("failed to update presentation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPresentationNotFound
	}
	return nil
}

func (r *pgPresentationRepository) UpdateOutline(ctx context.Context, id uuid.UUID, outline *model.Outline) error {
	outlineJSON, err := marshalOutline(outline)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `UPDATE presentations SET outline = $2, updated_at = now() WHERE id = $1`, id, outlineJSON)
	if err != nil {
		r.logger.Error("Failed to update presentation outline", zap.Error(err), zap.String("presentationID", id.String()))
		return fmt.Errorf("failed to update presentation outline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPresentationNotFound
	}
	return nil
}

func (r *pgPresentationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM presentations WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete presentation", zap.Error(err), zap.String("presentationID", id.String()))
		return fmt.Errorf("failed to delete presentation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPresentationNotFound
	}
	return nil
}

func marshalOutline(outline *model.Outline) ([]byte, error) {
	if outline == nil {
		return nil, nil
	}
	data, err := json.Marshal(outline)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outline: %w", err)
	}
	return data, nil
}

func unmarshalOutline(data []byte) (*model.Outline, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var outline model.Outline
	if err := json.Unmarshal(data, &outline); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outline: %w", err)
	}
	return &outline, nil
}
