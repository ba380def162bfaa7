package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/lockyolinks/lockyolinks/internal/app/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const linkCacheKeyPrefix = "link:"

// CachedLinkRepository wraps a LinkRepository with a short-TTL Redis
// read-through cache on the shortId lookup, the hot path of every
// resolution. Cache failures fall through to the store.
type CachedLinkRepository struct {
	inner  LinkRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedLinkRepository decorates inner with a Redis cache.
func NewCachedLinkRepository(inner LinkRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedLinkRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedLinkRepository{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *CachedLinkRepository) GetByShortID(ctx context.Context, shortID string) (*model.Link, error) {
	key := linkCacheKeyPrefix + shortID

	raw, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var link model.Link
		if jsonErr := json.Unmarshal(raw, &link); jsonErr == nil {
			return &link, nil
		}
		// Corrupt entry: drop it and reload from the store.
		r.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("link cache read failed", zap.Error(err), zap.String("short_id", shortID))
	}

	link, err := r.inner.GetByShortID(ctx, shortID)
	if err != nil {
		return nil, err
	}

	if raw, jsonErr := json.Marshal(link); jsonErr == nil {
		if setErr := r.client.Set(ctx, key, raw, r.ttl).Err(); setErr != nil {
			r.logger.Warn("link cache write failed", zap.Error(setErr), zap.String("short_id", shortID))
		}
	}

	return link, nil
}

// Invalidate drops the cached record for a short id. Every owner mutation and
// every click mutation goes through here so visitors never see a stale gate
// for longer than one store round trip.
func (r *CachedLinkRepository) Invalidate(ctx context.Context, shortID string) {
	if err := r.client.Del(ctx, linkCacheKeyPrefix+shortID).Err(); err != nil {
		r.logger.Warn("link cache invalidation failed", zap.Error(err), zap.String("short_id", shortID))
	}
}

func (r *CachedLinkRepository) Create(ctx context.Context, link *model.Link) error {
	return r.inner.Create(ctx, link)
}

func (r *CachedLinkRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Link, error) {
	return r.inner.ListByUser(ctx, userID, limit, offset)
}

func (r *CachedLinkRepository) ListShortIDs(ctx context.Context) ([]string, error) {
	return r.inner.ListShortIDs(ctx)
}

func (r *CachedLinkRepository) Update(ctx context.Context, link *model.Link) error {
	if err := r.inner.Update(ctx, link); err != nil {
		return err
	}
	r.Invalidate(ctx, link.ShortID)
	return nil
}

func (r *CachedLinkRepository) SoftDelete(ctx context.Context, id string) error {
	return r.inner.SoftDelete(ctx, id)
}
