// Package redislimiter rate-limits sync requests per user, with the ceiling
// taken from the user's subscription tier.
package redislimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/engarde-media/templatesync/policy"
)

// Window is the sliding window the tier's api_rate_limit applies to.
const Window = time.Hour

// Limiter is a Redis-backed sliding window limiter using ZSETs, keyed by
// user id with the limit chosen from the tier.
type Limiter struct {
	rdb   *redis.Client
	keyNS string
}

func New(rdb *redis.Client, keyPrefix string) *Limiter {
	if keyPrefix == "" {
		keyPrefix = "templatesync:rl:"
	}
	return &Limiter{rdb: rdb, keyNS: keyPrefix}
}

// Allow records one request for the user and reports whether it fits within
// the tier's hourly budget. A nil limiter or client allows everything.
func (l *Limiter) Allow(ctx context.Context, userID string, tier policy.Tier) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if userID == "" {
		return false, fmt.Errorf("user id required")
	}
	limit := policy.LimitsFor(tier).APIRateLimit

	now := time.Now().UnixMilli()
	start := now - Window.Milliseconds()
	key := l.keyNS + userID

	pipe := l.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", start))
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	count, err := countCmd.Result()
	if err != nil {
		return false, err
	}
	if count > int64(limit) {
		l.rdb.ZRem(ctx, key, now)
		return false, nil
	}
	return true, nil
}
