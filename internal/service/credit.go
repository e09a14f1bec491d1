package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"slideforge/internal/model"
	"slideforge/internal/repository"
)

// CreditService exposes balance and ledger reads. All mutations happen inside
// the repositories that own them, so this stays a thin read layer.
type CreditService struct {
	credits repository.CreditRepository
	logger  *zap.Logger
}

// NewCreditService wires a CreditService.
func NewCreditService(credits repository.CreditRepository, logger *zap.Logger) *CreditService {
	return &CreditService{
		credits: credits,
		logger:  logger.Named("CreditService"),
	}
}

// Balance returns the user's current spendable credits.
func (s *CreditService) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.credits.Balance(ctx, userID)
}

// CanAfford reports whether the balance covers the given cost without
// mutating anything. Used for cheap pre-checks before expensive work.
func (s *CreditService) CanAfford(ctx context.Context, userID uuid.UUID, cost int) (bool, error) {
	balance, err := s.credits.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= cost, nil
}

// History returns the user's ledger entries, newest first.
func (s *CreditService) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.CreditLedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.credits.ListEntries(ctx, userID, limit, offset)
}
