package repository

import (
	"context"

	"gateway/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// ListByMerchant retrieves a merchant's payments, newest first.
	ListByMerchant(ctx context.Context, merchantID string, limit int) ([]*domain.Payment, error)

	// CountByStatus counts payments in the given status.
	CountByStatus(ctx context.Context, status domain.PaymentStatus) (int64, error)

	// UpdateOutcome writes the settlement result of a pending payment.
	// Returns ErrStaleState if the payment is no longer pending.
	UpdateOutcome(ctx context.Context, payment *domain.Payment) error

	// MarkCaptured sets the captured flag on a successful payment.
	// Returns ErrStaleState if the payment is not in success status.
	MarkCaptured(ctx context.Context, id string) error
}
