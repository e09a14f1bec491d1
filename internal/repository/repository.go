package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"slideforge/internal/model"
)

// DBTX abstracts a pgx pool, connection or transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// PresentationRepository persists presentation documents.
type PresentationRepository interface {
	Create(ctx context.Context, p *model.Presentation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Presentation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Presentation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.PresentationStatus) error
	UpdateOutline(ctx context.Context, id uuid.UUID, outline *model.Outline) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SlideRepository persists slides.
type SlideRepository interface {
	Create(ctx context.Context, s *model.Slide) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Slide, error)
	ListByPresentation(ctx context.Context, presentationID uuid.UUID) ([]model.Slide, error)
	ListPendingImages(ctx context.Context, presentationID uuid.UUID) ([]model.Slide, error)
	Update(ctx context.Context, s *model.Slide) error
	SetImageURL(ctx context.Context, slideID uuid.UUID, imageURL string) error
	Reorder(ctx context.Context, presentationID uuid.UUID, orderedIDs []uuid.UUID) error
}

// CreditRepository mutates balances and keeps the append-only ledger. Deduct
// is an atomic conditional decrement so concurrent requests for the same user
// can never drive a balance negative.
type CreditRepository interface {
	Deduct(ctx context.Context, userID uuid.UUID, amount int, action model.CreditAction, metadata map[string]string) (*model.CreditLedgerEntry, error)
	Refund(ctx context.Context, userID uuid.UUID, amount int, metadata map[string]string) (*model.CreditLedgerEntry, error)
	Grant(ctx context.Context, userID uuid.UUID, amount int, metadata map[string]string) (*model.CreditLedgerEntry, error)
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.CreditLedgerEntry, error)
}

// APIKeyRepository persists MCP credentials.
type APIKeyRepository interface {
	Create(ctx context.Context, key *model.APIKey) error
	GetByHash(ctx context.Context, keyHash string) (*model.APIKey, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.APIKey, error)
	Deactivate(ctx context.Context, id, userID uuid.UUID) error
	TouchLastUsed(ctx context.Context, id uuid.UUID) error
}
