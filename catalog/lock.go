package catalog

import (
	"context"
	"hash/fnv"

	"github.com/google/uuid"
)

// lockKey maps a user id onto the 64-bit advisory lock space.
func lockKey(userID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("templatesync:"))
	h.Write(userID[:])
	return int64(h.Sum64())
}

// AcquireUserLock takes a session-level advisory lock serializing syncs for
// one user. The lock is held on a dedicated connection for the duration of
// the write phase; the returned release function unlocks and returns the
// connection to the pool. Blocks until the competing sync finishes (bounded
// by the caller's context).
func (s *Store) AcquireUserLock(ctx context.Context, userID uuid.UUID) (release func(), err error) {
	conn, err := s.pg.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	key := lockKey(userID)
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, key); err != nil {
		conn.Release()
		return nil, err
	}
	return func() {
		// Unlock on a background context: the request context may already be
		// cancelled, and releasing the connection without unlocking would
		// leak the session lock to the pool.
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, key)
		conn.Release()
	}, nil
}
