package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gateway/internal/domain"
	"gateway/internal/logger"
	"gateway/internal/metrics"
	"gateway/internal/repository"
	"gateway/internal/service"
)

const bankFailureDescription = "The bank rejected the transaction."

// EventEmitter creates webhook logs for settled entities.
type EventEmitter interface {
	EmitPaymentEvent(ctx context.Context, payment *domain.Payment) (*domain.WebhookLog, error)
	EmitRefundEvent(ctx context.Context, refund *domain.Refund) (*domain.WebhookLog, error)
}

// PaymentProcessor settles pending payments.
type PaymentProcessor struct {
	payments repository.PaymentRepository
	psp      service.PSP
	events   EventEmitter
	delay    DelayFunc
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewPaymentProcessor creates a new PaymentProcessor.
func NewPaymentProcessor(
	payments repository.PaymentRepository,
	psp service.PSP,
	events EventEmitter,
	delay DelayFunc,
	m *metrics.Metrics,
) *PaymentProcessor {
	return &PaymentProcessor{
		payments: payments,
		psp:      psp,
		events:   events,
		delay:    orNoDelay(delay),
		metrics:  m,
		now:      time.Now,
	}
}

// Process moves the payment referenced by job from pending to success or failed
// and emits payment.<status>.
func (p *PaymentProcessor) Process(ctx context.Context, job domain.Job) error {
	payment, err := p.payments.GetByID(ctx, job.EntityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn(ctx).Str("payment_id", job.EntityID).Msg("payment not found, dropping job")
			return nil
		}
		return fmt.Errorf("load payment %s: %w", job.EntityID, err)
	}

	if payment.Status.IsTerminal() {
		logger.Debug(ctx).Str("payment_id", payment.ID).Str("status", string(payment.Status)).Msg("payment already settled")
		return nil
	}

	pause(ctx, p.delay())

	ok, err := p.psp.Settle(ctx, payment)
	if err != nil {
		return fmt.Errorf("settle payment %s: %w", payment.ID, err)
	}

	if ok {
		payment.Status = domain.PaymentStatusSuccess
	} else {
		payment.Status = domain.PaymentStatusFailed
		payment.ErrorCode = domain.ErrorCodeBankFailure
		payment.ErrorDescription = bankFailureDescription
	}
	payment.UpdatedAt = p.now().UTC()

	if err := p.payments.UpdateOutcome(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			logger.Warn(ctx).Str("payment_id", payment.ID).Msg("payment settled concurrently, dropping job")
			return nil
		}
		return fmt.Errorf("update payment %s: %w", payment.ID, err)
	}

	p.metrics.ObserveSettlement(payment.Status)

	if _, err := p.events.EmitPaymentEvent(ctx, payment); err != nil {
		return fmt.Errorf("emit %s: %w", domain.PaymentEvent(payment.Status), err)
	}

	logger.Info(ctx).
		Str("payment_id", payment.ID).
		Str("status", string(payment.Status)).
		Msg("payment settled")

	return nil
}
