package redisstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Lock is a best-effort cross-process guard against concurrent syncs for the
// same user. The workspace advisory lock remains the correctness mechanism;
// this one exists to fail fast instead of queueing behind it.
type Lock struct {
	rdb   *redis.Client
	keyNS string
	ttl   time.Duration
}

func NewLock(rdb *redis.Client, keyPrefix string, ttl time.Duration) *Lock {
	if keyPrefix == "" {
		keyPrefix = "templatesync:lock:"
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Lock{rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

func (l *Lock) key(userID uuid.UUID) string { return l.keyNS + userID.String() }

// TryLock attempts to take the lock. ok is false when another holder exists.
// The TTL bounds how long a crashed holder can block others.
func (l *Lock) TryLock(ctx context.Context, userID uuid.UUID) (release func(), ok bool, err error) {
	token := uuid.NewString()
	key := l.key(userID)
	set, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !set {
		return nil, false, nil
	}
	return func() {
		// Release on a background context: the request may have been
		// cancelled after the sync finished.
		_ = releaseScript.Run(context.Background(), l.rdb, []string{key}, token).Err()
	}, true, nil
}
