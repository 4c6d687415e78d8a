package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gateway/internal/domain"
	"gateway/internal/repository"
)

const refundIDPrefix = "rfnd_"

// RefundService handles refund admission.
type RefundService struct {
	paymentRepo repository.PaymentRepository
	refundRepo  repository.RefundRepository
	queue       JobQueue
	now         func() time.Time
}

// NewRefundService creates a new RefundService.
func NewRefundService(paymentRepo repository.PaymentRepository, refundRepo repository.RefundRepository, queue JobQueue) *RefundService {
	return &RefundService{
		paymentRepo: paymentRepo,
		refundRepo:  refundRepo,
		queue:       queue,
		now:         time.Now,
	}
}

// CreateRefundRequest contains the parameters for creating a refund.
type CreateRefundRequest struct {
	Amount int64
	Reason string
}

// CreateRefund admits a refund against a successful payment of the merchant.
// The cumulative refunded amount never exceeds the payment amount.
func (s *RefundService) CreateRefund(ctx context.Context, merchantID, paymentID string, req CreateRefundRequest) (*domain.Refund, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidRefundAmount
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.MerchantID != merchantID {
		return nil, repository.ErrNotFound
	}

	if payment.Status != domain.PaymentStatusSuccess {
		return nil, ErrPaymentNotSuccessful
	}

	refund := &domain.Refund{
		ID:         newToken(refundIDPrefix),
		PaymentID:  payment.ID,
		MerchantID: merchantID,
		Amount:     req.Amount,
		Reason:     req.Reason,
		Status:     domain.RefundStatusPending,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.refundRepo.CreateWithinLimit(ctx, refund, payment.Amount); err != nil {
		if errors.Is(err, repository.ErrRefundLimitExceeded) {
			return nil, ErrRefundExceedsAmount
		}
		return nil, fmt.Errorf("create refund: %w", err)
	}

	if err := s.queue.Enqueue(ctx, domain.NewRefundJob(refund.ID)); err != nil {
		return nil, fmt.Errorf("enqueue refund %s: %w", refund.ID, err)
	}

	return refund, nil
}

// GetRefund retrieves a merchant's refund by ID.
func (s *RefundService) GetRefund(ctx context.Context, merchantID, refundID string) (*domain.Refund, error) {
	refund, err := s.refundRepo.GetByID(ctx, refundID)
	if err != nil {
		return nil, err
	}

	if refund.MerchantID != merchantID {
		return nil, repository.ErrNotFound
	}

	return refund, nil
}
