package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bullhorn/internal/logger"
)

// CachedStore is a read-through cache decorator over a Store. Cache failures
// degrade to the underlying store; they never fail a lookup. Not-found is
// deliberately not cached: a recipient created moments after a dispatch
// attempt should not stay invisible for a TTL.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func cacheKey(id string) string {
	return fmt.Sprintf("profile:%s", id)
}

func (s *CachedStore) FindByID(ctx context.Context, id string) (*Profile, error) {
	val, err := s.client.Get(ctx, cacheKey(id)).Result()
	if err == nil {
		var p Profile
		if jsonErr := json.Unmarshal([]byte(val), &p); jsonErr == nil {
			return &p, nil
		}
		// Unreadable cache entry; fall through and repopulate.
	} else if !errors.Is(err, redis.Nil) {
		s.logger.WarnwCtx(ctx, "Profile cache read failed",
			"error", err,
			"profile_id", id,
		)
	}

	p, err := s.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.set(ctx, p)
	return p, nil
}

func (s *CachedStore) Update(ctx context.Context, p *Profile) (*Profile, error) {
	updated, err := s.inner.Update(ctx, p)
	if err != nil {
		return nil, err
	}

	if delErr := s.client.Del(ctx, cacheKey(updated.ID)).Err(); delErr != nil {
		s.logger.WarnwCtx(ctx, "Profile cache invalidation failed",
			"error", delErr,
			"profile_id", updated.ID,
		)
	}
	return updated, nil
}

func (s *CachedStore) set(ctx context.Context, p *Profile) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, cacheKey(p.ID), data, s.ttl).Err(); err != nil {
		s.logger.WarnwCtx(ctx, "Profile cache write failed",
			"error", err,
			"profile_id", p.ID,
		)
	}
}
