package docstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"slideforge/internal/model"
)

// Store coordinates the three tiers: process memory, the Redis mirror, and
// authoritative Postgres. Mutations land in memory and the mirror at once and
// reach Postgres on a debounce (quiet period after the last change) or the
// hard sync interval, whichever fires first. The database wins on load; a
// document found only in the mirror is flagged dirty so it reaches the
// database on the next flush.
type Store struct {
	memory Tier
	cache  Tier
	db     Tier

	debounce time.Duration
	interval time.Duration

	mu        sync.Mutex
	dirty     map[uuid.UUID]time.Time // last local change per pending document
	lastFlush map[uuid.UUID]time.Time

	logger *zap.Logger
}

// New wires a Store; call Run to start the background flush loop.
func New(memory, cache, db Tier, debounce, interval time.Duration, logger *zap.Logger) *Store {
	return &Store{
		memory:    memory,
		cache:     cache,
		db:        db,
		debounce:  debounce,
		interval:  interval,
		dirty:     make(map[uuid.UUID]time.Time),
		lastFlush: make(map[uuid.UUID]time.Time),
		logger:    logger.Named("DocStore"),
	}
}

// Get loads a document, memory first, then the database (authoritative), then
// the Redis mirror as a last resort for documents the database has not seen
// yet.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	if doc, err := s.memory.Load(ctx, id); err == nil {
		return doc, nil
	}

	doc, err := s.db.Load(ctx, id)
	if err == nil {
		_ = s.memory.Store(ctx, doc)
		if cacheErr := s.cache.Store(ctx, doc); cacheErr != nil {
			s.logger.Warn("Failed to mirror document to cache", zap.String("presentationID", id.String()), zap.Error(cacheErr))
		}
		return doc, nil
	}
	if !errors.Is(err, model.ErrPresentationNotFound) {
		return nil, err
	}

	doc, cacheErr := s.cache.Load(ctx, id)
	if cacheErr != nil {
		return nil, err // db's not-found is the canonical answer
	}
	_ = s.memory.Store(ctx, doc)
	s.markDirty(id)
	return doc, nil
}

// Put records a local mutation: memory and mirror immediately, database on
// the next flush.
func (s *Store) Put(ctx context.Context, doc *model.Document) error {
	if err := s.memory.Store(ctx, doc); err != nil {
		return err
	}
	if err := s.cache.Store(ctx, doc); err != nil {
		// Cache failure degrades durability, not correctness; the flush loop
		// still carries the change to the database.
		s.logger.Warn("Failed to mirror document to cache",
			zap.String("presentationID", doc.Presentation.ID.String()),
			zap.Error(err))
	}
	s.markDirty(doc.Presentation.ID)
	return nil
}

// Delete evicts the document from every tier.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	delete(s.dirty, id)
	delete(s.lastFlush, id)
	s.mu.Unlock()

	_ = s.memory.Evict(ctx, id)
	if err := s.cache.Evict(ctx, id); err != nil {
		s.logger.Warn("Failed to evict document from cache", zap.String("presentationID", id.String()), zap.Error(err))
	}
	return s.db.Evict(ctx, id)
}

func (s *Store) markDirty(id uuid.UUID) {
	now := time.Now()
	s.mu.Lock()
	s.dirty[id] = now
	if _, ok := s.lastFlush[id]; !ok {
		// Start the hard-interval clock here; a never-flushed document must
		// still wait out the debounce.
		s.lastFlush[id] = now
	}
	s.mu.Unlock()
}

// Run drives the flush loop until the context is cancelled, then makes one
// final flush attempt so an orderly shutdown loses nothing.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.FlushAll(context.Background())
			return
		case <-ticker.C:
			s.flushDue(ctx)
		}
	}
}

// flushDue pushes documents whose debounce elapsed, or whose last successful
// flush is older than the hard interval.
func (s *Store) flushDue(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	var due []uuid.UUID
	for id, changedAt := range s.dirty {
		if now.Sub(changedAt) >= s.debounce || now.Sub(s.lastFlush[id]) >= s.interval {
			due = append(due, id)
		}
	}
	s.mu.Unlock()

	for _, id := range due {
		s.flushOne(ctx, id)
	}
}

// FlushAll pushes every pending document immediately.
func (s *Store) FlushAll(ctx context.Context) {
	s.mu.Lock()
	ids := make([]uuid.UUID, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.flushOne(ctx, id)
	}
}

func (s *Store) flushOne(ctx context.Context, id uuid.UUID) {
	doc, err := s.memory.Load(ctx, id)
	if err != nil {
		// Nothing in memory to push; drop the dirty flag.
		s.mu.Lock()
		delete(s.dirty, id)
		s.mu.Unlock()
		return
	}

	if err := s.db.Store(ctx, doc); err != nil {
		// Stay dirty; the next cycle retries.
		s.logger.Warn("Failed to sync document to database, will retry",
			zap.String("presentationID", id.String()),
			zap.Error(err))
		return
	}

	s.mu.Lock()
	delete(s.dirty, id)
	s.lastFlush[id] = time.Now()
	s.mu.Unlock()
	s.logger.Debug("Document synced", zap.String("presentationID", id.String()))
}

// Dirty reports whether the document still has unsynced changes.
func (s *Store) Dirty(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dirty[id]
	return ok
}
