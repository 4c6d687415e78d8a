package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"gateway/internal/domain"
	"gateway/internal/repository"
	"gateway/internal/service"
)

// ──────────────────────────────────────────────
// 2. REFUND LIMITS
// ──────────────────────────────────────────────

func TestRefund_ExceedingRemaining_Rejected(t *testing.T) {
	t.Parallel()

	p := newPipeline(service.NewSimulatedPSP(service.FixedDraw(true)), NewMockSender())
	ctx := context.Background()
	payment := p.settle(t, 1000)

	if _, err := p.refundService.CreateRefund(ctx, testMerchantID, payment.ID, service.CreateRefundRequest{Amount: 400}); err != nil {
		t.Fatalf("first refund: %v", err)
	}

	_, err := p.refundService.CreateRefund(ctx, testMerchantID, payment.ID, service.CreateRefundRequest{Amount: 700})
	if !errors.Is(err, service.ErrRefundExceedsAmount) {
		t.Fatalf("expected ErrRefundExceedsAmount, got: %v", err)
	}

	total, _ := p.refunds.TotalRefunded(ctx, payment.ID)
	if total != 400 {
		t.Errorf("expected total refunded 400, got %d", total)
	}
}

func TestRefund_FullAmountInParts_Succeeds(t *testing.T) {
	t.Parallel()

	p := newPipeline(service.NewSimulatedPSP(service.FixedDraw(true)), NewMockSender())
	ctx := context.Background()
	payment := p.settle(t, 1000)

	for _, amount := range []int64{400, 600} {
		if _, err := p.refundService.CreateRefund(ctx, testMerchantID, payment.ID, service.CreateRefundRequest{Amount: amount}); err != nil {
			t.Fatalf("refund %d: %v", amount, err)
		}
	}

	_, err := p.refundService.CreateRefund(ctx, testMerchantID, payment.ID, service.CreateRefundRequest{Amount: 1})
	if !errors.Is(err, service.ErrRefundExceedsAmount) {
		t.Errorf("expected fully refunded payment to reject more, got: %v", err)
	}
}

func TestRefund_InvalidRequests(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		draw       bool
		merchantID string
		amount     int64
		wantErr    error
	}{
		{name: "zero amount", draw: true, merchantID: testMerchantID, amount: 0, wantErr: service.ErrInvalidRefundAmount},
		{name: "negative amount", draw: true, merchantID: testMerchantID, amount: -5, wantErr: service.ErrInvalidRefundAmount},
		{name: "failed payment", draw: false, merchantID: testMerchantID, amount: 100, wantErr: service.ErrPaymentNotSuccessful},
		{name: "other merchant", draw: true, merchantID: "someone-else", amount: 100, wantErr: repository.ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := newPipeline(service.NewSimulatedPSP(service.FixedDraw(tc.draw)), NewMockSender())
			payment := p.settle(t, 1000)

			_, err := p.refundService.CreateRefund(context.Background(), tc.merchantID, payment.ID, service.CreateRefundRequest{Amount: tc.amount})
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got: %v", tc.wantErr, err)
			}
			if p.refunds.Count() != 0 {
				t.Errorf("expected no refunds stored, got %d", p.refunds.Count())
			}
		})
	}
}

func TestRefund_PendingPayment_Rejected(t *testing.T) {
	t.Parallel()

	p := newPipeline(service.NewSimulatedPSP(service.FixedDraw(true)), NewMockSender())
	ctx := context.Background()

	payment, err := p.paymentService.CreatePayment(ctx, testMerchantID, service.CreatePaymentRequest{
		OrderID: "order-1",
		Amount:  1000,
		Method:  domain.PaymentMethodCard,
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	_, err = p.refundService.CreateRefund(ctx, testMerchantID, payment.ID, service.CreateRefundRequest{Amount: 100})
	if !errors.Is(err, service.ErrPaymentNotSuccessful) {
		t.Errorf("expected ErrPaymentNotSuccessful, got: %v", err)
	}
}

func TestRefund_Concurrent_NeverExceedsAmount(t *testing.T) {
	t.Parallel()

	p := newPipeline(service.NewSimulatedPSP(service.FixedDraw(true)), NewMockSender())
	ctx := context.Background()
	payment := p.settle(t, 1000)

	var (
		wg       sync.WaitGroup
		admitted int32
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.refundService.CreateRefund(ctx, testMerchantID, payment.ID, service.CreateRefundRequest{Amount: 200})
			if err == nil {
				atomic.AddInt32(&admitted, 1)
				return
			}
			if !errors.Is(err, service.ErrRefundExceedsAmount) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if admitted != 5 {
		t.Errorf("expected 5 refunds admitted, got %d", admitted)
	}

	total, _ := p.refunds.TotalRefunded(ctx, payment.ID)
	if total != 1000 {
		t.Errorf("expected total refunded 1000, got %d", total)
	}
}

func TestRefund_Processed_EmitsRefundEvent(t *testing.T) {
	t.Parallel()

	p := newPipeline(service.NewSimulatedPSP(service.FixedDraw(true)), NewMockSender())
	ctx := context.Background()
	payment := p.settle(t, 1000)
	p.queue.Drain(domain.QueueWebhooks)

	refund, err := p.refundService.CreateRefund(ctx, testMerchantID, payment.ID, service.CreateRefundRequest{Amount: 250, Reason: "damaged"})
	if err != nil {
		t.Fatalf("create refund: %v", err)
	}

	if n := p.drain(t, domain.QueueRefunds, p.refundProcessor); n != 1 {
		t.Fatalf("expected 1 refund job, got %d", n)
	}

	stored, _ := p.refunds.GetByID(ctx, refund.ID)
	if stored.Status != domain.RefundStatusProcessed {
		t.Errorf("expected processed, got %s", stored.Status)
	}
	if stored.ProcessedAt == nil {
		t.Error("expected processed_at to be set")
	}

	var refundLogs int
	for _, l := range p.logs.All() {
		if l.Event == domain.EventRefundProcessed {
			refundLogs++
		}
	}
	if refundLogs != 1 {
		t.Errorf("expected 1 refund.processed log, got %d", refundLogs)
	}

	// Reprocessing a processed refund emits nothing new.
	if err := p.refundProcessor.Process(ctx, domain.NewRefundJob(refund.ID)); err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	if n := len(p.logs.All()); n != 2 {
		t.Errorf("expected 2 webhook logs in total, got %d", n)
	}
}
