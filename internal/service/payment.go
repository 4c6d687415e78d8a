package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"gateway/internal/domain"
	"gateway/internal/repository"
)

const (
	paymentIDPrefix = "pay_"
	defaultCurrency = "INR"

	// DefaultListLimit caps list endpoints.
	DefaultListLimit = 100
)

// JobQueue is the producer side of the work queues.
type JobQueue interface {
	Enqueue(ctx context.Context, job domain.Job) error
	Size(ctx context.Context, queue domain.QueueName) (int64, error)
}

// PaymentService handles payment admission and merchant-facing reads.
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	queue       JobQueue
	now         func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(paymentRepo repository.PaymentRepository, queue JobQueue) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		queue:       queue,
		now:         time.Now,
	}
}

// CreatePaymentRequest contains the parameters for creating a payment.
type CreatePaymentRequest struct {
	OrderID  string
	Amount   int64
	Currency string
	Method   domain.PaymentMethod
	VPA      string
}

// CreatePayment persists a pending payment and enqueues it for settlement.
func (s *PaymentService) CreatePayment(ctx context.Context, merchantID string, req CreatePaymentRequest) (*domain.Payment, error) {
	if req.OrderID == "" {
		return nil, ErrInvalidOrderID
	}

	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if !req.Method.Valid() {
		return nil, ErrInvalidMethod
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	now := s.now().UTC()
	payment := &domain.Payment{
		ID:         newToken(paymentIDPrefix),
		MerchantID: merchantID,
		OrderID:    req.OrderID,
		Amount:     req.Amount,
		Currency:   currency,
		Method:     req.Method,
		VPA:        req.VPA,
		Status:     domain.PaymentStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := s.queue.Enqueue(ctx, domain.NewPaymentJob(payment.ID)); err != nil {
		return nil, fmt.Errorf("enqueue payment %s: %w", payment.ID, err)
	}

	return payment, nil
}

// GetPayment retrieves a merchant's payment by ID.
func (s *PaymentService) GetPayment(ctx context.Context, merchantID, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.MerchantID != merchantID {
		return nil, repository.ErrNotFound
	}

	return payment, nil
}

// ListPayments retrieves a merchant's most recent payments.
func (s *PaymentService) ListPayments(ctx context.Context, merchantID string) ([]*domain.Payment, error) {
	return s.paymentRepo.ListByMerchant(ctx, merchantID, DefaultListLimit)
}

// CapturePayment marks a successful payment as captured. Capturing twice is a no-op.
func (s *PaymentService) CapturePayment(ctx context.Context, merchantID, paymentID string) (*domain.Payment, error) {
	payment, err := s.GetPayment(ctx, merchantID, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status != domain.PaymentStatusSuccess {
		return nil, ErrPaymentNotCapturable
	}

	if payment.Captured {
		return payment, nil
	}

	if err := s.paymentRepo.MarkCaptured(ctx, payment.ID); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, ErrPaymentNotCapturable
		}
		return nil, err
	}

	payment.Captured = true
	payment.UpdatedAt = s.now().UTC()
	return payment, nil
}

// JobStats summarises pipeline progress.
type JobStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
}

// JobStatus reports queued jobs across all queues, payments held by a worker,
// and payments in a terminal status.
func (s *PaymentService) JobStatus(ctx context.Context) (*JobStats, error) {
	var stats JobStats

	var paymentQueue int64
	for _, queue := range domain.Queues {
		size, err := s.queue.Size(ctx, queue)
		if err != nil {
			return nil, fmt.Errorf("queue size %s: %w", queue, err)
		}
		if queue == domain.QueuePayments {
			paymentQueue = size
		}
		stats.Pending += size
	}

	counts := make(map[domain.PaymentStatus]int64, 3)
	for _, status := range []domain.PaymentStatus{
		domain.PaymentStatusPending,
		domain.PaymentStatusSuccess,
		domain.PaymentStatusFailed,
	} {
		n, err := s.paymentRepo.CountByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("count %s payments: %w", status, err)
		}
		counts[status] = n
	}

	stats.Completed = counts[domain.PaymentStatusSuccess] + counts[domain.PaymentStatusFailed]
	stats.Processing = max(0, counts[domain.PaymentStatusPending]-paymentQueue)

	return &stats, nil
}

// newToken returns prefix followed by 16 random hex characters.
func newToken(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
