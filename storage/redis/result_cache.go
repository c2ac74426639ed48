// Package redisstore provides the optional Redis collaborators for the sync
// engine: the last-result cache behind the status projection and the
// cross-process per-user sync lock.
package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	enginesync "github.com/engarde-media/templatesync/sync"
)

// ResultCache stores the last sync result per user with a TTL.
type ResultCache struct {
	rdb   *redis.Client
	keyNS string
	ttl   time.Duration
}

func NewResultCache(rdb *redis.Client, keyPrefix string, ttl time.Duration) *ResultCache {
	if keyPrefix == "" {
		keyPrefix = "templatesync:result:"
	}
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &ResultCache{rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

func (c *ResultCache) key(userID uuid.UUID) string { return c.keyNS + userID.String() }

func (c *ResultCache) Put(ctx context.Context, userID uuid.UUID, res *enginesync.Result) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(userID), b, c.ttl).Err()
}

func (c *ResultCache) Get(ctx context.Context, userID uuid.UUID) (*enginesync.Result, bool, error) {
	val, err := c.rdb.Get(ctx, c.key(userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var res enginesync.Result
	if err := json.Unmarshal(val, &res); err != nil {
		return nil, false, err
	}
	return &res, true, nil
}
