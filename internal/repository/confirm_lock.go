package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token, so a lock
// that expired and was taken by someone else is never released by us.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// ConfirmLock is a Redis lock per payment id.  It keeps two sessions from
// confirming the same payment at the same time.
type ConfirmLock struct {
	rdb    *redis.Client
	prefix string
}

// NewConfirmLock returns a ConfirmLock storing keys under prefix.
func NewConfirmLock(rdb *redis.Client, prefix string) *ConfirmLock {
	if prefix == "" {
		prefix = "confirm-lock"
	}
	return &ConfirmLock{rdb: rdb, prefix: prefix}
}

// Acquire takes the lock for key for at most ttl.  ok is false when another
// holder owns it.  The returned release func is safe to call once.
func (l *ConfirmLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	full := l.prefix + ":" + key
	ok, err := l.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rdb, []string{full}, token).Err()
	}
	return release, true, nil
}
