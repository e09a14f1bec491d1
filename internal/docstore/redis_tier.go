package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"slideforge/internal/model"
)

const (
	docKeyPrefix = "slideforge:doc:"
	docIndexKey  = "slideforge:doc:index"

	// maxDocBytes caps one cached document. Oversized documents degrade to
	// metadata-only rather than failing the save.
	maxDocBytes = 5 << 20
)

type redisTier struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisTier creates the Redis-backed cache tier.
func NewRedisTier(client *redis.Client, ttl time.Duration, logger *zap.Logger) Tier {
	return &redisTier{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisDocTier"),
	}
}

func docKey(id uuid.UUID) string { return docKeyPrefix + id.String() }

func (t *redisTier) Load(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	data, err := t.client.Get(ctx, docKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPresentationNotFound
		}
		return nil, fmt.Errorf("failed to load document from redis: %w", err)
	}
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached document: %w", err)
	}
	return &doc, nil
}

// Store mirrors the document into Redis. Payloads over the size cap are
// degraded to the presentation metadata without slide bodies; a failed write
// triggers eviction of other cached documents and one retry.
func (t *redisTier) Store(ctx context.Context, doc *model.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	if len(data) > maxDocBytes {
		t.logger.Warn("Document exceeds cache size cap, storing metadata only",
			zap.String("presentationID", doc.Presentation.ID.String()),
			zap.Int("bytes", len(data)))
		degraded := &model.Document{Presentation: doc.Presentation}
		if data, err = json.Marshal(degraded); err != nil {
			return fmt.Errorf("failed to marshal degraded document: %w", err)
		}
	}

	key := docKey(doc.Presentation.ID)
	if err := t.write(ctx, key, data); err != nil {
		t.logger.Warn("Cache write failed, evicting other documents and retrying",
			zap.String("presentationID", doc.Presentation.ID.String()),
			zap.Error(err))
		t.evictOthers(ctx, doc.Presentation.ID)
		if err := t.write(ctx, key, data); err != nil {
			return fmt.Errorf("failed to store document in redis: %w", err)
		}
	}
	return nil
}

func (t *redisTier) write(ctx context.Context, key string, data []byte) error {
	pipe := t.client.TxPipeline()
	pipe.Set(ctx, key, data, t.ttl)
	pipe.SAdd(ctx, docIndexKey, key)
	_, err := pipe.Exec(ctx)
	return err
}

// evictOthers drops every cached document except keep. Best effort.
func (t *redisTier) evictOthers(ctx context.Context, keep uuid.UUID) {
	keys, err := t.client.SMembers(ctx, docIndexKey).Result()
	if err != nil {
		return
	}
	keepKey := docKey(keep)
	for _, key := range keys {
		if key == keepKey {
			continue
		}
		t.client.Del(ctx, key)
		t.client.SRem(ctx, docIndexKey, key)
	}
}

func (t *redisTier) Evict(ctx context.Context, id uuid.UUID) error {
	key := docKey(id)
	if err := t.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to evict document from redis: %w", err)
	}
	t.client.SRem(ctx, docIndexKey, key)
	return nil
}
