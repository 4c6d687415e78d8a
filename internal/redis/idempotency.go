package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"gateway/internal/domain"
)

const idempotencyPrefix = "idempotency:"

// IdempotencyStore caches admission responses in Redis. Expiry is delegated
// to the key TTL, so an expired entry is simply absent.
type IdempotencyStore struct {
	client *redis.Client
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

func idempotencyKey(key, merchantID string) string {
	return idempotencyPrefix + merchantID + ":" + key
}

// Lookup returns the cached response for (key, merchantID), or nil on a miss.
func (s *IdempotencyStore) Lookup(ctx context.Context, key, merchantID string) (*domain.CachedResponse, error) {
	data, err := s.client.Get(ctx, idempotencyKey(key, merchantID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var resp domain.CachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Store caches resp for (key, merchantID) for ttl. An existing entry is kept.
func (s *IdempotencyStore) Store(ctx context.Context, key, merchantID string, resp domain.CachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.SetNX(ctx, idempotencyKey(key, merchantID), data, ttl).Err()
}
