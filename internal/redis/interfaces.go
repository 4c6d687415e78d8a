package redis

import (
	"context"
	"time"

	"gateway/internal/domain"
)

// JobQueueInterface defines the interface for the work queues.
type JobQueueInterface interface {
	Enqueue(ctx context.Context, job domain.Job) error
	Dequeue(ctx context.Context, queue domain.QueueName, timeout time.Duration) (*domain.Job, error)
	Size(ctx context.Context, queue domain.QueueName) (int64, error)
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireIdempotencyLock(ctx context.Context, key, merchantID string, ttl time.Duration) (string, bool, error)
	ReleaseIdempotencyLock(ctx context.Context, key, merchantID, token string) error
}

// MerchantCacheInterface defines the interface for merchant lookup caching.
type MerchantCacheInterface interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.Merchant, error)
	Set(ctx context.Context, m *domain.Merchant) error
	Invalidate(ctx context.Context, apiKey string) error
}

// Ensure concrete types implement interfaces.
var (
	_ JobQueueInterface      = (*JobQueue)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ MerchantCacheInterface = (*MerchantCache)(nil)
)
