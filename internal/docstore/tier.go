package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"slideforge/internal/model"
)

// Tier is one storage level of the document store. Load returns
// model.ErrPresentationNotFound when the tier has no copy.
type Tier interface {
	Load(ctx context.Context, id uuid.UUID) (*model.Document, error)
	Store(ctx context.Context, doc *model.Document) error
	Evict(ctx context.Context, id uuid.UUID) error
}

// memoryTier keeps the working set of open documents in process memory.
type memoryTier struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]*model.Document
}

// NewMemoryTier creates an empty in-memory tier.
func NewMemoryTier() Tier {
	return &memoryTier{docs: make(map[uuid.UUID]*model.Document)}
}

func (t *memoryTier) Load(_ context.Context, id uuid.UUID) (*model.Document, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	doc, ok := t.docs[id]
	if !ok {
		return nil, model.ErrPresentationNotFound
	}
	return doc, nil
}

func (t *memoryTier) Store(_ context.Context, doc *model.Document) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.docs[doc.Presentation.ID] = doc
	return nil
}

func (t *memoryTier) Evict(_ context.Context, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.docs, id)
	return nil
}
