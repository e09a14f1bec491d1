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

var _ CreditRepository = (*pgCreditRepository)(nil)

type pgCreditRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgCreditRepository creates a PostgreSQL-backed CreditRepository.
func NewPgCreditRepository(pool *pgxpool.Pool, logger *zap.Logger) CreditRepository {
	return &pgCreditRepository{
		pool:   pool,
		logger: logger.Named("PgCreditRepo"),
	}
}

// Deduct atomically decrements the balance and appends the ledger entry in one
// transaction. The conditional UPDATE means two concurrent requests for the
// same user cannot both succeed past the balance.
func (r *pgCreditRepository) Deduct(ctx context.Context, userID uuid.UUID, amount int, action model.CreditAction, metadata map[string]string) (*model.CreditLedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: deduction amount must be positive", model.ErrInvalidInput)
	}
	return r.applyDelta(ctx, userID, amount, action, metadata)
}

// Refund is the compensating action used when generation fails after credits
// were already taken. Recorded as a negative credits_used entry.
func (r *pgCreditRepository) Refund(ctx context.Context, userID uuid.UUID, amount int, metadata map[string]string) (*model.CreditLedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: refund amount must be positive", model.ErrInvalidInput)
	}
	return r.applyDelta(ctx, userID, -amount, model.ActionRefund, metadata)
}

// Grant adds credits, e.g. the signup bonus.
func (r *pgCreditRepository) Grant(ctx context.Context, userID uuid.UUID, amount int, metadata map[string]string) (*model.CreditLedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: grant amount must be positive", model.ErrInvalidInput)
	}
	return r.applyDelta(ctx, userID, -amount, model.ActionGrant, metadata)
}

func (r *pgCreditRepository) applyDelta(ctx context.Context, userID uuid.UUID, creditsUsed int, action model.CreditAction, metadata map[string]string) (*model.CreditLedgerEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin credit transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var balanceAfter int
	err = tx.QueryRow(ctx,
		`UPDATE users SET credits = credits - $2 WHERE id = $1 AND credits >= $2 RETURNING credits`,
		userID, creditsUsed,
	).Scan(&balanceAfter)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the user does not exist or the balance is short; tell
			// them apart so the caller gets the right error.
			var exists bool
			if checkErr := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); checkErr == nil && !exists {
				return nil, model.ErrUserNotFound
			}
			r.logger.Warn("Credit deduction rejected: insufficient balance",
				zap.String("userID", userID.String()), zap.Int("amount", creditsUsed))
			return nil, model.ErrInsufficientCredits
		}
		r.logger.Error("Failed to update credit balance", zap.Error(err), zap.String("userID", userID.String()))
		return nil, fmt.Errorf("failed to update credit balance: %w", err)
	}

	entry := &model.CreditLedgerEntry{
		UserID:        userID,
		Action:        action,
		CreditsUsed:   creditsUsed,
		BalanceBefore: balanceAfter + creditsUsed,
		BalanceAfter:  balanceAfter,
		Metadata:      metadata,
	}

	var metadataJSON []byte
	if metadata != nil {
		if metadataJSON, err = json.Marshal(metadata); err != nil {
			return nil, fmt.Errorf("failed to marshal ledger metadata: %w", err)
		}
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO credit_ledger (user_id, action, credits_used, balance_before, balance_after, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		entry.UserID, entry.Action, entry.CreditsUsed, entry.BalanceBefore, entry.BalanceAfter, metadataJSON,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to append credit ledger entry", zap.Error(err), zap.String("userID", userID.String()))
		return nil, fmt.Errorf("%w: %v", model.ErrLedgerWriteFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit credit transaction: %w", err)
	}

	r.logger.Info("Credit ledger entry recorded",
		zap.String("userID", userID.String()),
		zap.String("action", string(action)),
		zap.Int("creditsUsed", creditsUsed),
		zap.Int("balanceAfter", balanceAfter))
	return entry, nil
}

func (r *pgCreditRepository) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	var balance int
	err := r.pool.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to read credit balance: %w", err)
	}
	return balance, nil
}

func (r *pgCreditRepository) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.CreditLedgerEntry, error) {
	query := `SELECT id, user_id, action, credits_used, balance_before, balance_after, metadata, created_at
		FROM credit_ledger WHERE user_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit ledger entries: %w", err)
	}
	defer rows.Close()

	var out []model.CreditLedgerEntry
	for rows.Next() {
		var e model.CreditLedgerEntry
		var metadataJSON []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.CreditsUsed, &e.BalanceBefore, &e.BalanceAfter, &metadataJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal ledger metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
