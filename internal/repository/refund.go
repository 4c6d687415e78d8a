package repository

import (
	"context"

	"gateway/internal/domain"
)

// RefundRepository defines the persistence operations for refunds.
type RefundRepository interface {
	// CreateWithinLimit persists a refund only if the sum of existing refunds
	// for the payment plus this one stays within limit.
	// Returns ErrRefundLimitExceeded otherwise, with no side effects.
	CreateWithinLimit(ctx context.Context, refund *domain.Refund, limit int64) error

	// GetByID retrieves a refund by ID.
	GetByID(ctx context.Context, id string) (*domain.Refund, error)

	// ListByPayment retrieves all refunds of a payment.
	ListByPayment(ctx context.Context, paymentID string) ([]*domain.Refund, error)

	// TotalRefunded sums the amounts of all refunds of a payment.
	TotalRefunded(ctx context.Context, paymentID string) (int64, error)

	// MarkProcessed moves a pending refund to processed.
	// Returns ErrStaleState if the refund is no longer pending.
	MarkProcessed(ctx context.Context, refund *domain.Refund) error
}
