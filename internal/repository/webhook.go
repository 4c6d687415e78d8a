package repository

import (
	"context"
	"time"

	"gateway/internal/domain"
)

// WebhookLogRepository defines the persistence operations for webhook logs.
type WebhookLogRepository interface {
	// Create persists a new webhook log.
	Create(ctx context.Context, log *domain.WebhookLog) error

	// GetByID retrieves a webhook log by ID.
	GetByID(ctx context.Context, id string) (*domain.WebhookLog, error)

	// ListByMerchant retrieves a merchant's logs, newest first.
	ListByMerchant(ctx context.Context, merchantID string) ([]*domain.WebhookLog, error)

	// FindDueRetries returns pending logs whose next retry time is at or before now.
	FindDueRetries(ctx context.Context, now time.Time) ([]*domain.WebhookLog, error)

	// RecordAttempt persists the result of one delivery attempt. The write only
	// applies while the stored log is pending with expectedAttempts attempts;
	// otherwise ErrStaleState is returned.
	RecordAttempt(ctx context.Context, log *domain.WebhookLog, expectedAttempts int) error

	// MarkFailed fails a pending log without consuming an attempt.
	MarkFailed(ctx context.Context, id string) error

	// ClearNextRetry makes a waiting log eligible again, provided its attempt
	// count still equals attempts.
	ClearNextRetry(ctx context.Context, id string, attempts int) error

	// ScheduleRetry sets the next retry time of a pending log that is not
	// already waiting, provided its attempt count still equals attempts.
	ScheduleRetry(ctx context.Context, id string, attempts int, at time.Time) error

	// ResetForRetry puts a log back to pending with zero attempts.
	ResetForRetry(ctx context.Context, id string) error
}
