package service_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/domain"
	"gateway/internal/repository"
	"gateway/internal/service"
	"gateway/internal/tests"
)

func TestCreatePayment_Validation(t *testing.T) {
	testCases := []struct {
		name    string
		req     service.CreatePaymentRequest
		wantErr error
	}{
		{
			name:    "missing order id",
			req:     service.CreatePaymentRequest{Amount: 100, Method: domain.PaymentMethodUPI},
			wantErr: service.ErrInvalidOrderID,
		},
		{
			name:    "zero amount",
			req:     service.CreatePaymentRequest{OrderID: "o1", Amount: 0, Method: domain.PaymentMethodUPI},
			wantErr: service.ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			req:     service.CreatePaymentRequest{OrderID: "o1", Amount: -1, Method: domain.PaymentMethodCard},
			wantErr: service.ErrInvalidAmount,
		},
		{
			name:    "unknown method",
			req:     service.CreatePaymentRequest{OrderID: "o1", Amount: 100, Method: "cash"},
			wantErr: service.ErrInvalidMethod,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			payments := tests.NewMockPaymentRepository()
			svc := service.NewPaymentService(payments, tests.NewMockJobQueue())

			_, err := svc.CreatePayment(context.Background(), "m1", tc.req)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Zero(t, payments.Count())
		})
	}
}

func TestCreatePayment_Defaults(t *testing.T) {
	payments := tests.NewMockPaymentRepository()
	queue := tests.NewMockJobQueue()
	svc := service.NewPaymentService(payments, queue)

	payment, err := svc.CreatePayment(context.Background(), "m1", service.CreatePaymentRequest{
		OrderID: "o1",
		Amount:  100,
		Method:  domain.PaymentMethodCard,
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^pay_[0-9a-f]{16}$`), payment.ID)
	assert.Equal(t, "INR", payment.Currency)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)

	jobs := queue.Drain(domain.QueuePayments)
	require.Len(t, jobs, 1)
	assert.Equal(t, payment.ID, jobs[0].EntityID)
}

func TestGetPayment_OtherMerchant_NotFound(t *testing.T) {
	payments := tests.NewMockPaymentRepository()
	payments.AddPayment(&domain.Payment{ID: "pay_1", MerchantID: "m1", Status: domain.PaymentStatusPending})
	svc := service.NewPaymentService(payments, tests.NewMockJobQueue())

	_, err := svc.GetPayment(context.Background(), "m2", "pay_1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.GetPayment(context.Background(), "m1", "")
	assert.ErrorIs(t, err, service.ErrInvalidPaymentID)
}

func TestCapturePayment(t *testing.T) {
	payments := tests.NewMockPaymentRepository()
	payments.AddPayment(&domain.Payment{ID: "pay_ok", MerchantID: "m1", Status: domain.PaymentStatusSuccess})
	payments.AddPayment(&domain.Payment{ID: "pay_pending", MerchantID: "m1", Status: domain.PaymentStatusPending})
	svc := service.NewPaymentService(payments, tests.NewMockJobQueue())
	ctx := context.Background()

	_, err := svc.CapturePayment(ctx, "m1", "pay_pending")
	assert.ErrorIs(t, err, service.ErrPaymentNotCapturable)

	captured, err := svc.CapturePayment(ctx, "m1", "pay_ok")
	require.NoError(t, err)
	assert.True(t, captured.Captured)

	again, err := svc.CapturePayment(ctx, "m1", "pay_ok")
	require.NoError(t, err)
	assert.True(t, again.Captured)
}

func TestListPayments_NewestFirst(t *testing.T) {
	payments := tests.NewMockPaymentRepository()
	svc := service.NewPaymentService(payments, tests.NewMockJobQueue())
	ctx := context.Background()

	for _, order := range []string{"o1", "o2", "o3"} {
		_, err := svc.CreatePayment(ctx, "m1", service.CreatePaymentRequest{OrderID: order, Amount: 1, Method: domain.PaymentMethodUPI})
		require.NoError(t, err)
	}

	list, err := svc.ListPayments(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "o3", list[0].OrderID)
	assert.Equal(t, "o1", list[2].OrderID)
}

func TestSimulatedPSP_SuccessRates(t *testing.T) {
	assert.Equal(t, 0.90, service.SuccessRate(domain.PaymentMethodUPI))
	assert.Equal(t, 0.95, service.SuccessRate(domain.PaymentMethodCard))

	upi := &domain.Payment{Method: domain.PaymentMethodUPI}
	card := &domain.Payment{Method: domain.PaymentMethodCard}

	// A draw of 0.92 fails UPI but passes card.
	psp := service.NewSimulatedPSP(func() float64 { return 0.92 })
	ok, _ := psp.Settle(context.Background(), upi)
	assert.False(t, ok)
	ok, _ = psp.Settle(context.Background(), card)
	assert.True(t, ok)

	ok, _ = service.NewSimulatedPSP(service.FixedDraw(false)).Settle(context.Background(), card)
	assert.False(t, ok)
}

func TestIdempotencyService_Expiry(t *testing.T) {
	repo := tests.NewMockIdempotencyKeyRepository()
	clock := tests.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := service.NewIdempotencyService(repo).WithClock(clock.Now)
	ctx := context.Background()

	resp := domain.CachedResponse{StatusCode: 201, Body: []byte(`{"id":"pay_1"}`)}
	require.NoError(t, svc.Store(ctx, "abc123", "m1", resp, 24*time.Hour))

	// A second store for the same key keeps the first response.
	require.NoError(t, svc.Store(ctx, "abc123", "m1", domain.CachedResponse{StatusCode: 201, Body: []byte(`{}`)}, 24*time.Hour))

	got, err := svc.Lookup(ctx, "abc123", "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `{"id":"pay_1"}`, string(got.Body))

	clock.Advance(24 * time.Hour)
	got, err = svc.Lookup(ctx, "abc123", "m1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, int32(1), repo.DeleteCallCount)

	_, err = repo.Get(ctx, "abc123", "m1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
