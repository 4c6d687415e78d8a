package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"gateway/internal/domain"
)

// MerchantCacheTTL bounds how long a rotated credential can still authenticate.
const MerchantCacheTTL = 60 * time.Second

const merchantCachePrefix = "cache:merchant:"

// CachedMerchant represents a cached merchant entity.
type CachedMerchant struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	APIKey        string    `json:"api_key"`
	APISecret     string    `json:"api_secret"`
	WebhookURL    string    `json:"webhook_url"`
	WebhookSecret string    `json:"webhook_secret"`
	CreatedAt     time.Time `json:"created_at"`
}

// MerchantCache handles merchant caching in Redis, keyed by API key.
type MerchantCache struct {
	client *redis.Client
}

// NewMerchantCache creates a new MerchantCache.
func NewMerchantCache(client *redis.Client) *MerchantCache {
	return &MerchantCache{client: client}
}

// GetByAPIKey retrieves a merchant from cache. A miss returns nil, nil.
func (c *MerchantCache) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Merchant, error) {
	data, err := c.client.Get(ctx, merchantCachePrefix+apiKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedMerchant
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	return &domain.Merchant{
		ID:            cached.ID,
		Name:          cached.Name,
		Email:         cached.Email,
		APIKey:        cached.APIKey,
		APISecret:     cached.APISecret,
		WebhookURL:    cached.WebhookURL,
		WebhookSecret: cached.WebhookSecret,
		CreatedAt:     cached.CreatedAt,
	}, nil
}

// Set stores a merchant in cache.
func (c *MerchantCache) Set(ctx context.Context, m *domain.Merchant) error {
	data, err := json.Marshal(CachedMerchant{
		ID:            m.ID,
		Name:          m.Name,
		Email:         m.Email,
		APIKey:        m.APIKey,
		APISecret:     m.APISecret,
		WebhookURL:    m.WebhookURL,
		WebhookSecret: m.WebhookSecret,
		CreatedAt:     m.CreatedAt,
	})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, merchantCachePrefix+m.APIKey, data, MerchantCacheTTL).Err()
}

// Invalidate removes a merchant from cache.
func (c *MerchantCache) Invalidate(ctx context.Context, apiKey string) error {
	return c.client.Del(ctx, merchantCachePrefix+apiKey).Err()
}
