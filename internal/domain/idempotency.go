package domain

import "time"

// CachedResponse is the admission response replayed for a repeated idempotency key.
// Body holds the bytes exactly as first written.
type CachedResponse struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
}

// IdempotencyKey caches the response of a request identified by (Key, MerchantID).
type IdempotencyKey struct {
	Key        string
	MerchantID string
	Response   CachedResponse
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the entry is no longer valid at now.
func (k *IdempotencyKey) Expired(now time.Time) bool {
	return !k.ExpiresAt.After(now)
}
