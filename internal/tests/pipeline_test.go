package tests

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"gateway/internal/domain"
	"gateway/internal/service"
	"gateway/internal/worker"
)

// ──────────────────────────────────────────────
// TEST PIPELINE
// ──────────────────────────────────────────────

const (
	testMerchantID    = "550e8400-e29b-41d4-a716-446655440000"
	testAPIKey        = "key_test_abc123"
	testAPISecret     = "secret_test_xyz789"
	testWebhookSecret = "whsec_test_abc123"
)

func testMerchant() *domain.Merchant {
	return &domain.Merchant{
		ID:            testMerchantID,
		Name:          "Test Merchant",
		Email:         "test@example.com",
		APIKey:        testAPIKey,
		APISecret:     testAPISecret,
		WebhookURL:    "http://merchant.test/webhook",
		WebhookSecret: testWebhookSecret,
	}
}

// pipeline wires services and workers over in-memory mocks. Jobs are
// processed by draining queues explicitly instead of running consumers.
type pipeline struct {
	merchants *MockMerchantRepository
	payments  *MockPaymentRepository
	refunds   *MockRefundRepository
	logs      *MockWebhookLogRepository
	queue     *MockJobQueue
	sender    *MockSender
	clock     *FakeClock

	paymentService *service.PaymentService
	refundService  *service.RefundService
	webhookService *service.WebhookService

	paymentProcessor *worker.PaymentProcessor
	refundProcessor  *worker.RefundProcessor
	dispatcher       *worker.WebhookDispatcher
	sweeper          *worker.RetrySweeper
}

func newPipeline(psp service.PSP, sender *MockSender, merchants ...*domain.Merchant) *pipeline {
	if len(merchants) == 0 {
		merchants = []*domain.Merchant{testMerchant()}
	}

	p := &pipeline{
		merchants: NewMockMerchantRepository(merchants...),
		payments:  NewMockPaymentRepository(),
		refunds:   NewMockRefundRepository(),
		logs:      NewMockWebhookLogRepository(),
		queue:     NewMockJobQueue(),
		sender:    sender,
		clock:     NewFakeClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)),
	}

	p.paymentService = service.NewPaymentService(p.payments, p.queue)
	p.refundService = service.NewRefundService(p.payments, p.refunds, p.queue)
	p.webhookService = service.NewWebhookService(p.logs, p.queue).WithClock(p.clock.Now)

	p.paymentProcessor = worker.NewPaymentProcessor(p.payments, psp, p.webhookService, nil, nil)
	p.refundProcessor = worker.NewRefundProcessor(p.refunds, p.webhookService, nil)
	p.dispatcher = worker.NewWebhookDispatcher(p.logs, p.merchants, sender, service.NewRetryPolicy(true), nil).
		WithClock(p.clock.Now)
	p.sweeper = worker.NewRetrySweeper(p.logs, p.queue, time.Second, nil).
		WithClock(p.clock.Now)

	return p
}

// drain processes every job waiting on queue and returns how many ran.
func (p *pipeline) drain(t *testing.T, queue domain.QueueName, proc worker.Processor) int {
	t.Helper()

	jobs := p.queue.Drain(queue)
	for _, job := range jobs {
		if err := proc.Process(context.Background(), job); err != nil {
			t.Fatalf("process %s job %s: %v", queue, job.EntityID, err)
		}
	}
	return len(jobs)
}

// settle creates a payment and processes it to a terminal status.
func (p *pipeline) settle(t *testing.T, amount int64) *domain.Payment {
	t.Helper()

	payment, err := p.paymentService.CreatePayment(context.Background(), testMerchantID, service.CreatePaymentRequest{
		OrderID:  "order-1",
		Amount:   amount,
		Currency: "INR",
		Method:   domain.PaymentMethodUPI,
		VPA:      "user@okbank",
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	p.drain(t, domain.QueuePayments, p.paymentProcessor)
	return p.payments.GetPayment(payment.ID)
}

// ──────────────────────────────────────────────
// 1. PAYMENT PROCESSING
// ──────────────────────────────────────────────

func TestPaymentFlow_UPI_EmitsExactlyOneWebhook(t *testing.T) {
	t.Parallel()

	p := newPipeline(service.NewSimulatedPSP(nil), NewMockSender())

	payment := p.settle(t, 1000)

	if payment.Status != domain.PaymentStatusSuccess && payment.Status != domain.PaymentStatusFailed {
		t.Fatalf("expected terminal status, got %s", payment.Status)
	}

	logs, _ := p.logs.ListByMerchant(context.Background(), testMerchantID)
	if len(logs) != 1 {
		t.Fatalf("expected exactly 1 webhook log, got %d", len(logs))
	}

	wantEvent := "payment." + string(payment.Status)
	if logs[0].Event != wantEvent {
		t.Errorf("expected event %s, got %s", wantEvent, logs[0].Event)
	}

	var body struct {
		Event string `json:"event"`
		Data  struct {
			Payment struct {
				ID      string `json:"id"`
				Amount  int64  `json:"amount"`
				Status  string `json:"status"`
				OrderID string `json:"order_id"`
			} `json:"payment"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(logs[0].Payload), &body); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if body.Event != wantEvent || body.Data.Payment.ID != payment.ID || body.Data.Payment.Amount != 1000 {
		t.Errorf("unexpected payload: %s", logs[0].Payload)
	}
}

func TestPaymentFlow_BankRejection_RecordsFailure(t *testing.T) {
	t.Parallel()

	p := newPipeline(service.NewSimulatedPSP(service.FixedDraw(false)), NewMockSender())

	payment := p.settle(t, 500)

	if payment.Status != domain.PaymentStatusFailed {
		t.Fatalf("expected failed, got %s", payment.Status)
	}
	if payment.ErrorCode != domain.ErrorCodeBankFailure {
		t.Errorf("expected error code %s, got %q", domain.ErrorCodeBankFailure, payment.ErrorCode)
	}
	if payment.ErrorDescription == "" {
		t.Error("expected error description to be set")
	}

	logs := p.logs.All()
	if len(logs) != 1 || logs[0].Event != "payment.failed" {
		t.Fatalf("expected one payment.failed log, got %+v", logs)
	}
}

func TestPaymentFlow_DuplicateJob_IsNoOp(t *testing.T) {
	t.Parallel()

	p := newPipeline(service.NewSimulatedPSP(service.FixedDraw(true)), NewMockSender())

	payment := p.settle(t, 1000)
	if payment.Status != domain.PaymentStatusSuccess {
		t.Fatalf("expected success, got %s", payment.Status)
	}

	// A redelivered job must not change a terminal payment.
	if err := p.queue.Enqueue(context.Background(), domain.NewPaymentJob(payment.ID)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	p.drain(t, domain.QueuePayments, p.paymentProcessor)

	after := p.payments.GetPayment(payment.ID)
	if after.Status != domain.PaymentStatusSuccess || !after.UpdatedAt.Equal(payment.UpdatedAt) {
		t.Errorf("terminal payment changed: %+v", after)
	}
	if n := len(p.logs.All()); n != 1 {
		t.Errorf("expected 1 webhook log, got %d", n)
	}
}

func TestPaymentFlow_ConcurrentProcessors_SingleOutcome(t *testing.T) {
	t.Parallel()

	p := newPipeline(service.NewSimulatedPSP(service.FixedDraw(true)), NewMockSender())

	payment, err := p.paymentService.CreatePayment(context.Background(), testMerchantID, service.CreatePaymentRequest{
		OrderID: "order-race",
		Amount:  1000,
		Method:  domain.PaymentMethodCard,
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	p.queue.Drain(domain.QueuePayments)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.paymentProcessor.Process(context.Background(), domain.NewPaymentJob(payment.ID)); err != nil {
				t.Errorf("process: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := len(p.logs.All()); n != 1 {
		t.Errorf("expected exactly 1 webhook log, got %d", n)
	}
}

func TestPaymentFlow_MissingPayment_DropsJob(t *testing.T) {
	t.Parallel()

	p := newPipeline(service.NewSimulatedPSP(service.FixedDraw(true)), NewMockSender())

	if err := p.paymentProcessor.Process(context.Background(), domain.NewPaymentJob("pay_missing")); err != nil {
		t.Fatalf("expected missing payment to be dropped, got: %v", err)
	}
	if n := len(p.logs.All()); n != 0 {
		t.Errorf("expected no webhook logs, got %d", n)
	}
}

func TestJobStatus_CountsQueuedAndSettled(t *testing.T) {
	t.Parallel()

	p := newPipeline(service.NewSimulatedPSP(service.FixedDraw(true)), NewMockSender())
	ctx := context.Background()

	p.settle(t, 100)
	p.queue.Drain(domain.QueueWebhooks)

	for range 2 {
		if _, err := p.paymentService.CreatePayment(ctx, testMerchantID, service.CreatePaymentRequest{
			OrderID: "order-queued",
			Amount:  100,
			Method:  domain.PaymentMethodCard,
		}); err != nil {
			t.Fatalf("create payment: %v", err)
		}
	}

	stats, err := p.paymentService.JobStatus(ctx)
	if err != nil {
		t.Fatalf("job status: %v", err)
	}

	if stats.Pending != 2 {
		t.Errorf("expected 2 pending jobs, got %d", stats.Pending)
	}
	if stats.Processing != 0 {
		t.Errorf("expected 0 processing, got %d", stats.Processing)
	}
	if stats.Completed != 1 {
		t.Errorf("expected 1 completed, got %d", stats.Completed)
	}
}
