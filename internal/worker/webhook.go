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

// Delivery results reported to metrics.
const (
	deliverySuccess = "success"
	deliveryRetry   = "retry"
	deliveryFailed  = "failed"
	deliveryNoURL   = "no_endpoint"
)

// WebhookDispatcher delivers webhook logs and applies the retry policy.
type WebhookDispatcher struct {
	logs      repository.WebhookLogRepository
	merchants repository.MerchantRepository
	sender    Sender
	policy    service.RetryPolicy
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewWebhookDispatcher creates a new WebhookDispatcher.
func NewWebhookDispatcher(
	logs repository.WebhookLogRepository,
	merchants repository.MerchantRepository,
	sender Sender,
	policy service.RetryPolicy,
	m *metrics.Metrics,
) *WebhookDispatcher {
	return &WebhookDispatcher{
		logs:      logs,
		merchants: merchants,
		sender:    sender,
		policy:    policy,
		metrics:   m,
		now:       time.Now,
	}
}

// WithClock overrides the dispatcher's clock.
func (d *WebhookDispatcher) WithClock(now func() time.Time) *WebhookDispatcher {
	d.now = now
	return d
}

// Process makes one delivery attempt for the webhook log referenced by job.
//
// Terminal and not-yet-due logs are dropped. The attempt is persisted with a
// compare-and-swap on (pending, attempts); a dispatcher that loses the race
// drops the job.
func (d *WebhookDispatcher) Process(ctx context.Context, job domain.Job) error {
	log, err := d.logs.GetByID(ctx, job.EntityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn(ctx).Str("webhook_id", job.EntityID).Msg("webhook log not found, dropping job")
			return nil
		}
		return fmt.Errorf("load webhook log %s: %w", job.EntityID, err)
	}

	if log.Status.IsTerminal() {
		return nil
	}

	if !log.IsDue(d.now()) {
		logger.Debug(ctx).Str("webhook_id", log.ID).Time("next_retry_at", *log.NextRetryAt).Msg("webhook not due yet")
		return nil
	}

	merchant, err := d.merchants.GetByID(ctx, log.MerchantID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("load merchant %s: %w", log.MerchantID, err)
	}

	if merchant == nil || !merchant.HasWebhook() {
		if err := d.logs.MarkFailed(ctx, log.ID); err != nil && !errors.Is(err, repository.ErrStaleState) {
			return fmt.Errorf("fail webhook log %s: %w", log.ID, err)
		}
		d.metrics.ObserveDelivery(deliveryNoURL)
		logger.Warn(ctx).Str("webhook_id", log.ID).Str("merchant_id", log.MerchantID).Msg("no webhook endpoint, marking failed")
		return nil
	}

	payload := []byte(log.Payload)
	signature := service.Sign(payload, merchant.WebhookSecret)
	expectedAttempts := log.Attempts

	delivery, sendErr := d.sender.Send(ctx, merchant.WebhookURL, payload, signature)

	attemptAt := d.now().UTC()
	log.LastAttemptAt = &attemptAt
	log.NextRetryAt = nil

	if sendErr != nil {
		log.ResponseCode = nil
		log.ResponseBody = "Error: " + sendErr.Error()
	} else {
		code := delivery.StatusCode
		log.ResponseCode = &code
		log.ResponseBody = delivery.Body
	}

	result := d.applyOutcome(log, sendErr == nil && delivery.OK(), attemptAt)

	if err := d.logs.RecordAttempt(ctx, log, expectedAttempts); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			logger.Warn(ctx).Str("webhook_id", log.ID).Msg("webhook attempt raced with another dispatcher, dropping job")
			return nil
		}
		return fmt.Errorf("record webhook attempt %s: %w", log.ID, err)
	}

	d.metrics.ObserveDelivery(result)

	event := logger.Info(ctx)
	if result != deliverySuccess {
		event = logger.Warn(ctx).AnErr("transport_error", sendErr)
	}
	event.
		Str("webhook_id", log.ID).
		Str("event", log.Event).
		Str("status", string(log.Status)).
		Int("attempts", log.Attempts).
		Msg("webhook delivery attempted")

	return nil
}

// applyOutcome counts the delivery try, advances the log's state machine and
// returns the metrics result.
func (d *WebhookDispatcher) applyOutcome(log *domain.WebhookLog, delivered bool, attemptAt time.Time) string {
	log.Attempts++
	if delivered {
		log.Status = domain.WebhookStatusSuccess
		return deliverySuccess
	}

	if d.policy.Exhausted(log.Attempts) {
		log.Status = domain.WebhookStatusFailed
		return deliveryFailed
	}

	next := attemptAt.Add(d.policy.Backoff(log.Attempts))
	log.Status = domain.WebhookStatusPending
	log.NextRetryAt = &next
	return deliveryRetry
}
