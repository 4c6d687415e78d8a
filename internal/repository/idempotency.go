package repository

import (
	"context"

	"gateway/internal/domain"
)

// IdempotencyKeyRepository defines the persistence operations for idempotency keys.
type IdempotencyKeyRepository interface {
	// Get retrieves the entry for (key, merchantID), expired or not.
	Get(ctx context.Context, key, merchantID string) (*domain.IdempotencyKey, error)

	// Create persists a new entry. Returns ErrDuplicate if one already exists.
	Create(ctx context.Context, entry *domain.IdempotencyKey) error

	// Delete removes the entry for (key, merchantID).
	Delete(ctx context.Context, key, merchantID string) error
}
