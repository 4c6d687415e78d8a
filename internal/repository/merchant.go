package repository

import (
	"context"

	"gateway/internal/domain"
)

// MerchantRepository defines the read operations the gateway needs on merchants.
type MerchantRepository interface {
	// GetByID retrieves a merchant by ID.
	GetByID(ctx context.Context, id string) (*domain.Merchant, error)

	// GetByAPIKey retrieves a merchant by its public API key.
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.Merchant, error)
}
