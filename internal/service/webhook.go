package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gateway/internal/domain"
	"gateway/internal/logger"
	"gateway/internal/repository"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body.
const SignatureHeader = "X-Webhook-Signature"

// MaxWebhookAttempts is the delivery budget of a webhook log.
const MaxWebhookAttempts = 5

var (
	productionBackoff = []time.Duration{
		60 * time.Second,
		300 * time.Second,
		1800 * time.Second,
		7200 * time.Second,
	}
	testBackoff = []time.Duration{
		5 * time.Second,
		10 * time.Second,
		15 * time.Second,
		20 * time.Second,
	}
)

// RetryPolicy maps failed attempt counts to the delay before the next try.
type RetryPolicy struct {
	MaxAttempts int
	Schedule    []time.Duration
}

// NewRetryPolicy returns the production schedule, or the compressed
// test schedule when testIntervals is set.
func NewRetryPolicy(testIntervals bool) RetryPolicy {
	schedule := productionBackoff
	if testIntervals {
		schedule = testBackoff
	}
	return RetryPolicy{MaxAttempts: MaxWebhookAttempts, Schedule: schedule}
}

// Backoff returns the delay after failed attempt n (1-based). Attempts past
// the schedule get zero.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 || attempt > len(p.Schedule) {
		return 0
	}
	return p.Schedule[attempt-1]
}

// Exhausted reports whether attempts has used up the delivery budget.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}

// Sign returns the hex-encoded HMAC-SHA256 of payload keyed by secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches payload under secret.
func VerifySignature(payload []byte, secret, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expected)
}

type paymentEventData struct {
	Payment paymentEventPayment `json:"payment"`
}

type paymentEventPayment struct {
	ID      string               `json:"id"`
	Amount  int64                `json:"amount"`
	Status  domain.PaymentStatus `json:"status"`
	OrderID string               `json:"order_id"`
}

type refundEventData struct {
	RefundID  string              `json:"refund_id"`
	PaymentID string              `json:"payment_id"`
	Amount    int64               `json:"amount"`
	Status    domain.RefundStatus `json:"status"`
}

// WebhookService creates webhook logs and drives them into the webhook queue.
type WebhookService struct {
	logRepo repository.WebhookLogRepository
	queue   JobQueue
	now     func() time.Time
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(logRepo repository.WebhookLogRepository, queue JobQueue) *WebhookService {
	return &WebhookService{
		logRepo: logRepo,
		queue:   queue,
		now:     time.Now,
	}
}

// WithClock overrides the service's clock.
func (s *WebhookService) WithClock(now func() time.Time) *WebhookService {
	s.now = now
	return s
}

// Emit persists an eligible webhook log for {event, data} and enqueues it.
func (s *WebhookService) Emit(ctx context.Context, merchantID, event string, data any) (*domain.WebhookLog, error) {
	payload, err := json.Marshal(domain.WebhookEnvelope{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}

	log := &domain.WebhookLog{
		ID:         uuid.NewString(),
		MerchantID: merchantID,
		Event:      event,
		Payload:    string(payload),
		Status:     domain.WebhookStatusPending,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.logRepo.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("create webhook log: %w", err)
	}

	if err := s.enqueue(ctx, log); err != nil {
		return nil, err
	}

	return log, nil
}

// enqueue hands a fresh log to the dispatcher, or to the retry sweeper when
// the queue rejects it.
func (s *WebhookService) enqueue(ctx context.Context, log *domain.WebhookLog) error {
	enqueueErr := s.queue.Enqueue(ctx, domain.NewWebhookJob(log.ID))
	if enqueueErr == nil {
		return nil
	}

	at := s.now().UTC()
	if err := s.logRepo.ScheduleRetry(ctx, log.ID, log.Attempts, at); err != nil {
		return errors.Join(
			fmt.Errorf("enqueue webhook %s: %w", log.ID, enqueueErr),
			fmt.Errorf("schedule webhook %s: %w", log.ID, err),
		)
	}

	log.NextRetryAt = &at
	logger.Warn(ctx).
		Err(enqueueErr).
		Str("webhook_id", log.ID).
		Msg("webhook enqueue failed, left for retry sweeper")
	return nil
}

// EmitPaymentEvent emits payment.<status> for a settled payment.
func (s *WebhookService) EmitPaymentEvent(ctx context.Context, payment *domain.Payment) (*domain.WebhookLog, error) {
	return s.Emit(ctx, payment.MerchantID, domain.PaymentEvent(payment.Status), paymentEventData{
		Payment: paymentEventPayment{
			ID:      payment.ID,
			Amount:  payment.Amount,
			Status:  payment.Status,
			OrderID: payment.OrderID,
		},
	})
}

// EmitRefundEvent emits refund.processed for a processed refund.
func (s *WebhookService) EmitRefundEvent(ctx context.Context, refund *domain.Refund) (*domain.WebhookLog, error) {
	return s.Emit(ctx, refund.MerchantID, domain.EventRefundProcessed, refundEventData{
		RefundID:  refund.ID,
		PaymentID: refund.PaymentID,
		Amount:    refund.Amount,
		Status:    refund.Status,
	})
}

// ListLogs returns a merchant's webhook logs, newest first.
func (s *WebhookService) ListLogs(ctx context.Context, merchantID string) ([]*domain.WebhookLog, error) {
	return s.logRepo.ListByMerchant(ctx, merchantID)
}

// Retry resets a merchant's webhook log to a fresh pending state and enqueues it.
func (s *WebhookService) Retry(ctx context.Context, merchantID, logID string) error {
	log, err := s.logRepo.GetByID(ctx, logID)
	if err != nil {
		return err
	}

	if log.MerchantID != merchantID {
		return repository.ErrNotFound
	}

	if err := s.logRepo.ResetForRetry(ctx, log.ID); err != nil {
		return err
	}

	log.Status = domain.WebhookStatusPending
	log.Attempts = 0
	log.NextRetryAt = nil
	return s.enqueue(ctx, log)
}
