package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"slideforge/internal/model"
)

// Mock repository.UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}
func (m *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

// Mock repository.PresentationRepository
type PresentationRepository struct {
	mock.Mock
}

func (m *PresentationRepository) Create(ctx context.Context, p *model.Presentation) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *PresentationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Presentation, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.Presentation)
	return p, args.Error(1)
}
func (m *PresentationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Presentation, error) {
	args := m.Called(ctx, userID, limit, offset)
	list, _ := args.Get(0).([]model.Presentation)
	return list, args.Error(1)
}
func (m *PresentationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PresentationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}
func (m *PresentationRepository) UpdateOutline(ctx context.Context, id uuid.UUID, outline *model.Outline) error {
	args := m.Called(ctx, id, outline)
	return args.Error(0)
}
func (m *PresentationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock repository.SlideRepository
type SlideRepository struct {
	mock.Mock
}

func (m *SlideRepository) Create(ctx context.Context, s *model.Slide) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}
func (m *SlideRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slide, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*model.Slide)
	return s, args.Error(1)
}
func (m *SlideRepository) ListByPresentation(ctx context.Context, presentationID uuid.UUID) ([]model.Slide, error) {
	args := m.Called(ctx, presentationID)
	list, _ := args.Get(0).([]model.Slide)
	return list, args.Error(1)
}
func (m *SlideRepository) ListPendingImages(ctx context.Context, presentationID uuid.UUID) ([]model.Slide, error) {
	args := m.Called(ctx, presentationID)
	list, _ := args.Get(0).([]model.Slide)
	return list, args.Error(1)
}
func (m *SlideRepository) Update(ctx context.Context, s *model.Slide) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}
func (m *SlideRepository) SetImageURL(ctx context.Context, slideID uuid.UUID, imageURL string) error {
	args := m.Called(ctx, slideID, imageURL)
	return args.Error(0)
}
func (m *SlideRepository) Reorder(ctx context.Context, presentationID uuid.UUID, orderedIDs []uuid.UUID) error {
	args := m.Called(ctx, presentationID, orderedIDs)
	return args.Error(0)
}

// Mock repository.CreditRepository
type CreditRepository struct {
	mock.Mock
}

func (m *CreditRepository) Deduct(ctx context.Context, userID uuid.UUID, amount int, action model.CreditAction, metadata map[string]string) (*model.CreditLedgerEntry, error) {
	args := m.Called(ctx, userID, amount, action, metadata)
	entry, _ := args.Get(0).(*model.CreditLedgerEntry)
	return entry, args.Error(1)
}
func (m *CreditRepository) Refund(ctx context.Context, userID uuid.UUID, amount int, metadata map[string]string) (*model.CreditLedgerEntry, error) {
	args := m.Called(ctx, userID, amount, metadata)
	entry, _ := args.Get(0).(*model.CreditLedgerEntry)
	return entry, args.Error(1)
}
func (m *CreditRepository) Grant(ctx context.Context, userID uuid.UUID, amount int, metadata map[string]string) (*model.CreditLedgerEntry, error) {
	args := m.Called(ctx, userID, amount, metadata)
	entry, _ := args.Get(0).(*model.CreditLedgerEntry)
	return entry, args.Error(1)
}
func (m *CreditRepository) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
func (m *CreditRepository) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.CreditLedgerEntry, error) {
	args := m.Called(ctx, userID, limit, offset)
	list, _ := args.Get(0).([]model.CreditLedgerEntry)
	return list, args.Error(1)
}

// Mock repository.APIKeyRepository
type APIKeyRepository struct {
	mock.Mock
}

func (m *APIKeyRepository) Create(ctx context.Context, key *model.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
func (m *APIKeyRepository) GetByHash(ctx context.Context, keyHash string) (*model.APIKey, error) {
	args := m.Called(ctx, keyHash)
	key, _ := args.Get(0).(*model.APIKey)
	return key, args.Error(1)
}
func (m *APIKeyRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.APIKey, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]model.APIKey)
	return list, args.Error(1)
}
func (m *APIKeyRepository) Deactivate(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}
func (m *APIKeyRepository) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
