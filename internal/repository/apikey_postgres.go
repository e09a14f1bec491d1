package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"slideforge/internal/model"
)

var _ APIKeyRepository = (*pgAPIKeyRepository)(nil)

type pgAPIKeyRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgAPIKeyRepository creates a PostgreSQL-backed APIKeyRepository.
func NewPgAPIKeyRepository(db DBTX, logger *zap.Logger) APIKeyRepository {
	return &pgAPIKeyRepository{
		db:     db,
		logger: logger.Named("PgAPIKeyRepo"),
	}
}

func (r *pgAPIKeyRepository) Create(ctx context.Context, key *model.APIKey) error {
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	query := `INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, is_active)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`
	err := r.db.QueryRow(ctx, query, key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.IsActive).
		Scan(&key.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Hash collision means the exact same key was generated twice;
			// callers regenerate on this.
			return fmt.Errorf("%w: duplicate key hash", model.ErrAPIKeyInvalid)
		}
		r.logger.Error("Failed to create api key in postgres", zap.Error(err), zap.String("userID", key.UserID.String()))
		return fmt.Errorf("failed to create api key in postgres: %w", err)
	}
	r.logger.Info("API key created", zap.String("keyID", key.ID.String()), zap.String("prefix", key.KeyPrefix))
	return nil
}

func (r *pgAPIKeyRepository) GetByHash(ctx context.Context, keyHash string) (*model.APIKey, error) {
	query := `SELECT id, user_id, name, key_hash, key_prefix, is_active, last_used_at, created_at
		FROM api_keys WHERE key_hash = $1`
	key := &model.APIKey{}
	err := r.db.QueryRow(ctx, query, keyHash).Scan(
		&key.ID, &key.UserID, &key.Name, &key.KeyHash, &key.KeyPrefix,
		&key.IsActive, &key.LastUsedAt, &key.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAPIKeyNotFound
		}
		r.logger.Error("Failed to get api key by hash from postgres", zap.Error(err))
		return nil, fmt.Errorf("failed to get api key by hash from postgres: %w", err)
	}
	return key, nil
}

func (r *pgAPIKeyRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.APIKey, error) {
	query := `SELECT id, user_id, name, key_hash, key_prefix, is_active, last_used_at, created_at
		FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`
	var keys []model.APIKey
	if err := pgxscan.Select(ctx, r.db, &keys, query, userID); err != nil {
		r.logger.Error("Failed to list api keys from postgres", zap.Error(err), zap.String("userID", userID.String()))
		return nil, fmt.Errorf("failed to list api keys from postgres: %w", err)
	}
	return keys, nil
}

// Deactivate soft-deletes the key; revoked keys stay visible in listings.
func (r *pgAPIKeyRepository) Deactivate(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE api_keys SET is_active = false WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		r.logger.Error("Failed to deactivate api key", zap.Error(err), zap.String("keyID", id.String()))
		return fmt.Errorf("failed to deactivate api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAPIKeyNotFound
	}
	return nil
}

func (r *pgAPIKeyRepository) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE api_keys SET last_used_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch api key last_used_at: %w", err)
	}
	return nil
}
