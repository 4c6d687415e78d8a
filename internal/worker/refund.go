package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gateway/internal/domain"
	"gateway/internal/logger"
	"gateway/internal/repository"
)

// RefundProcessor completes pending refunds.
type RefundProcessor struct {
	refunds repository.RefundRepository
	events  EventEmitter
	delay   DelayFunc
	now     func() time.Time
}

// NewRefundProcessor creates a new RefundProcessor.
func NewRefundProcessor(refunds repository.RefundRepository, events EventEmitter, delay DelayFunc) *RefundProcessor {
	return &RefundProcessor{
		refunds: refunds,
		events:  events,
		delay:   orNoDelay(delay),
		now:     time.Now,
	}
}

// Process marks the refund referenced by job processed and emits refund.processed.
func (p *RefundProcessor) Process(ctx context.Context, job domain.Job) error {
	refund, err := p.refunds.GetByID(ctx, job.EntityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn(ctx).Str("refund_id", job.EntityID).Msg("refund not found, dropping job")
			return nil
		}
		return fmt.Errorf("load refund %s: %w", job.EntityID, err)
	}

	if refund.Status != domain.RefundStatusPending {
		return nil
	}

	pause(ctx, p.delay())

	processedAt := p.now().UTC()
	refund.Status = domain.RefundStatusProcessed
	refund.ProcessedAt = &processedAt

	if err := p.refunds.MarkProcessed(ctx, refund); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			logger.Warn(ctx).Str("refund_id", refund.ID).Msg("refund processed concurrently, dropping job")
			return nil
		}
		return fmt.Errorf("update refund %s: %w", refund.ID, err)
	}

	if _, err := p.events.EmitRefundEvent(ctx, refund); err != nil {
		return fmt.Errorf("emit %s: %w", domain.EventRefundProcessed, err)
	}

	logger.Info(ctx).Str("refund_id", refund.ID).Msg("refund processed")
	return nil
}
