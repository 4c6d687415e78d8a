package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const idempotencyLockPrefix = "lock:idempotency:"

// releaseLockScript deletes the lock only while it still holds the caller's token.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

func idempotencyLockKey(key, merchantID string) string {
	return idempotencyLockPrefix + merchantID + ":" + key
}

// AcquireIdempotencyLock marks a request with (key, merchantID) as in flight.
// On success it returns the owner token needed to release the lock; ok is
// false if the lock is already held.
func (s *LockStore) AcquireIdempotencyLock(ctx context.Context, key, merchantID string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, idempotencyLockKey(key, merchantID), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

// ReleaseIdempotencyLock releases the in-flight lock for (key, merchantID) if
// token still owns it. A lock that expired and was taken by another request
// is left alone.
func (s *LockStore) ReleaseIdempotencyLock(ctx context.Context, key, merchantID, token string) error {
	return releaseLockScript.Run(ctx, s.client, []string{idempotencyLockKey(key, merchantID)}, token).Err()
}
