package docstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"slideforge/internal/model"
)

// fakeTier is an in-memory Tier with a configurable failure switch and a
// store-call counter, used to observe flush behavior.
type fakeTier struct {
	mu     sync.Mutex
	docs   map[uuid.UUID]*model.Document
	stores int
	fail   bool
}

func newFakeTier() *fakeTier {
	return &fakeTier{docs: make(map[uuid.UUID]*model.Document)}
}

func (f *fakeTier) Load(_ context.Context, id uuid.UUID) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, model.ErrPresentationNotFound
	}
	return doc, nil
}

func (f *fakeTier) Store(_ context.Context, doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stores++
	if f.fail {
		return assertFailErr
	}
	f.docs[doc.Presentation.ID] = doc
	return nil
}

func (f *fakeTier) Evict(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeTier) storeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stores
}

var assertFailErr = model.ErrInternalServer

func testDoc(id uuid.UUID) *model.Document {
	return &model.Document{
		Presentation: model.Presentation{ID: id, Prompt: "test", Status: model.StatusCompleted},
		Slides: []model.Slide{
			{ID: uuid.New(), PresentationID: id, Position: 0, Title: "one"},
		},
	}
}

func newTestStore(memory, cache, db Tier) *Store {
	return New(memory, cache, db, 10*time.Millisecond, time.Minute, zap.NewNop())
}

func TestGetPrefersMemory(t *testing.T) {
	memory, cache, db := newFakeTier(), newFakeTier(), newFakeTier()
	store := newTestStore(memory, cache, db)

	id := uuid.New()
	inMemory := testDoc(id)
	require.NoError(t, memory.Store(context.Background(), inMemory))

	// Stale conflicting copies in the outer tiers must not be consulted.
	stale := testDoc(id)
	stale.Presentation.Prompt = "stale"
	require.NoError(t, cache.Store(context.Background(), stale))
	require.NoError(t, db.Store(context.Background(), stale))

	got, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "test", got.Presentation.Prompt)
}

func TestGetDatabaseWinsOverCache(t *testing.T) {
	memory, cache, db := newFakeTier(), newFakeTier(), newFakeTier()
	store := newTestStore(memory, cache, db)

	id := uuid.New()
	cached := testDoc(id)
	cached.Presentation.Prompt = "cache version"
	require.NoError(t, cache.Store(context.Background(), cached))

	authoritative := testDoc(id)
	authoritative.Presentation.Prompt = "database version"
	require.NoError(t, db.Store(context.Background(), authoritative))

	got, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "database version", got.Presentation.Prompt)

	// The load mirrors the authoritative copy forward and is not a local
	// change, so nothing is pending.
	assert.False(t, store.Dirty(id))
	inMemory, err := memory.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "database version", inMemory.Presentation.Prompt)
}

func TestGetCacheOnlyDocumentBecomesDirty(t *testing.T) {
	memory, cache, db := newFakeTier(), newFakeTier(), newFakeTier()
	store := newTestStore(memory, cache, db)

	id := uuid.New()
	require.NoError(t, cache.Store(context.Background(), testDoc(id)))

	got, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.Presentation.ID)

	// A document the database has never seen must be scheduled for sync.
	assert.True(t, store.Dirty(id))
}

func TestGetMissingEverywhere(t *testing.T) {
	store := newTestStore(newFakeTier(), newFakeTier(), newFakeTier())
	_, err := store.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrPresentationNotFound)
}

func TestPutReachesMemoryAndCacheImmediately(t *testing.T) {
	memory, cache, db := newFakeTier(), newFakeTier(), newFakeTier()
	store := newTestStore(memory, cache, db)

	id := uuid.New()
	require.NoError(t, store.Put(context.Background(), testDoc(id)))

	_, err := memory.Load(context.Background(), id)
	assert.NoError(t, err)
	_, err = cache.Load(context.Background(), id)
	assert.NoError(t, err)

	// The database only sees the document on flush.
	_, err = db.Load(context.Background(), id)
	assert.ErrorIs(t, err, model.ErrPresentationNotFound)
	assert.True(t, store.Dirty(id))
}

func TestFlushAllPushesToDatabase(t *testing.T) {
	memory, cache, db := newFakeTier(), newFakeTier(), newFakeTier()
	store := newTestStore(memory, cache, db)

	id := uuid.New()
	require.NoError(t, store.Put(context.Background(), testDoc(id)))

	store.FlushAll(context.Background())

	_, err := db.Load(context.Background(), id)
	assert.NoError(t, err)
	assert.False(t, store.Dirty(id))
}

func TestFlushDueWaitsOutDebounceForNewDocument(t *testing.T) {
	memory, cache, db := newFakeTier(), newFakeTier(), newFakeTier()
	store := New(memory, cache, db, time.Hour, time.Hour, zap.NewNop())

	id := uuid.New()
	require.NoError(t, store.Put(context.Background(), testDoc(id)))

	// Neither the debounce nor the hard interval has elapsed for a document
	// that was never flushed before.
	store.flushDue(context.Background())
	assert.True(t, store.Dirty(id))
	assert.Equal(t, 0, db.storeCount())
}

func TestFailedFlushStaysDirty(t *testing.T) {
	memory, cache, db := newFakeTier(), newFakeTier(), newFakeTier()
	store := newTestStore(memory, cache, db)

	id := uuid.New()
	require.NoError(t, store.Put(context.Background(), testDoc(id)))

	db.fail = true
	store.FlushAll(context.Background())
	assert.True(t, store.Dirty(id), "a failed database write must keep the document pending")

	db.fail = false
	store.FlushAll(context.Background())
	assert.False(t, store.Dirty(id))
	assert.Equal(t, 2, db.storeCount())
}

func TestDeleteEvictsEveryTier(t *testing.T) {
	memory, cache, db := newFakeTier(), newFakeTier(), newFakeTier()
	store := newTestStore(memory, cache, db)

	id := uuid.New()
	require.NoError(t, store.Put(context.Background(), testDoc(id)))
	store.FlushAll(context.Background())

	require.NoError(t, store.Delete(context.Background(), id))

	for name, tier := range map[string]Tier{"memory": memory, "cache": cache, "db": db} {
		_, err := tier.Load(context.Background(), id)
		assert.Error(t, err, "tier %s still holds the document", name)
	}
	assert.False(t, store.Dirty(id))
}

func TestMemoryTierRoundtrip(t *testing.T) {
	tier := NewMemoryTier()
	id := uuid.New()

	_, err := tier.Load(context.Background(), id)
	assert.ErrorIs(t, err, model.ErrPresentationNotFound)

	require.NoError(t, tier.Store(context.Background(), testDoc(id)))
	got, err := tier.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.Presentation.ID)

	require.NoError(t, tier.Evict(context.Background(), id))
	_, err = tier.Load(context.Background(), id)
	assert.ErrorIs(t, err, model.ErrPresentationNotFound)
}
