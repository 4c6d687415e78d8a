package tests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gateway/internal/domain"
	"gateway/internal/repository"
	"gateway/internal/worker"
)

// ──────────────────────────────────────────────
// MOCK MERCHANT REPOSITORY
// ──────────────────────────────────────────────

// MockMerchantRepository is a mock implementation of MerchantRepository.
type MockMerchantRepository struct {
	mu        sync.RWMutex
	merchants map[string]*domain.Merchant

	GetByAPIKeyCallCount int32
}

// NewMockMerchantRepository creates a new mock merchant repository.
func NewMockMerchantRepository(merchants ...*domain.Merchant) *MockMerchantRepository {
	m := &MockMerchantRepository{merchants: make(map[string]*domain.Merchant)}
	for _, merchant := range merchants {
		m.merchants[merchant.ID] = merchant
	}
	return m
}

func (m *MockMerchantRepository) GetByID(ctx context.Context, id string) (*domain.Merchant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	merchant, ok := m.merchants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *merchant
	return &copy, nil
}

func (m *MockMerchantRepository) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Merchant, error) {
	atomic.AddInt32(&m.GetByAPIKeyCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, merchant := range m.merchants {
		if merchant.APIKey == apiKey {
			copy := *merchant
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment
	order    []string

	// Counters for verification
	CreateCallCount        int32
	UpdateOutcomeCallCount int32

	// Error injection
	CreateError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{payments: make(map[string]*domain.Payment)}
}

// AddPayment adds a payment to the mock repository.
func (m *MockPaymentRepository) AddPayment(p *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *p
	m.payments[p.ID] = &copy
	m.order = append(m.order, p.ID)
}

// Count returns the number of stored payments.
func (m *MockPaymentRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

// GetPayment returns a payment for test assertions.
func (m *MockPaymentRepository) GetPayment(id string) *domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok {
		return nil
	}
	copy := *p
	return &copy
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.AddPayment(p)
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	p := m.GetPayment(id)
	if p == nil {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (m *MockPaymentRepository) ListByMerchant(ctx context.Context, merchantID string, limit int) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Payment
	for i := len(m.order) - 1; i >= 0 && len(result) < limit; i-- {
		p := m.payments[m.order[i]]
		if p.MerchantID == merchantID {
			copy := *p
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockPaymentRepository) CountByStatus(ctx context.Context, status domain.PaymentStatus) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, p := range m.payments {
		if p.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *MockPaymentRepository) UpdateOutcome(ctx context.Context, p *domain.Payment) error {
	atomic.AddInt32(&m.UpdateOutcomeCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.payments[p.ID]
	if !ok || stored.Status != domain.PaymentStatusPending {
		return repository.ErrStaleState
	}
	stored.Status = p.Status
	stored.ErrorCode = p.ErrorCode
	stored.ErrorDescription = p.ErrorDescription
	stored.UpdatedAt = p.UpdatedAt
	return nil
}

func (m *MockPaymentRepository) MarkCaptured(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.payments[id]
	if !ok || stored.Status != domain.PaymentStatusSuccess {
		return repository.ErrStaleState
	}
	stored.Captured = true
	return nil
}

// ──────────────────────────────────────────────
// MOCK REFUND REPOSITORY
// ──────────────────────────────────────────────

// MockRefundRepository is a mock implementation of RefundRepository.
// CreateWithinLimit is atomic under the mock's lock.
type MockRefundRepository struct {
	mu      sync.RWMutex
	refunds map[string]*domain.Refund
}

// NewMockRefundRepository creates a new mock refund repository.
func NewMockRefundRepository() *MockRefundRepository {
	return &MockRefundRepository{refunds: make(map[string]*domain.Refund)}
}

// AddRefund adds a refund to the mock repository.
func (m *MockRefundRepository) AddRefund(r *domain.Refund) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *r
	m.refunds[r.ID] = &copy
}

// Count returns the number of stored refunds.
func (m *MockRefundRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.refunds)
}

func (m *MockRefundRepository) CreateWithinLimit(ctx context.Context, r *domain.Refund, limit int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, existing := range m.refunds {
		if existing.PaymentID == r.PaymentID {
			total += existing.Amount
		}
	}
	if total+r.Amount > limit {
		return repository.ErrRefundLimitExceeded
	}
	copy := *r
	m.refunds[r.ID] = &copy
	return nil
}

func (m *MockRefundRepository) GetByID(ctx context.Context, id string) (*domain.Refund, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.refunds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *r
	return &copy, nil
}

func (m *MockRefundRepository) ListByPayment(ctx context.Context, paymentID string) ([]*domain.Refund, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Refund
	for _, r := range m.refunds {
		if r.PaymentID == paymentID {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockRefundRepository) TotalRefunded(ctx context.Context, paymentID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, r := range m.refunds {
		if r.PaymentID == paymentID {
			total += r.Amount
		}
	}
	return total, nil
}

func (m *MockRefundRepository) MarkProcessed(ctx context.Context, r *domain.Refund) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.refunds[r.ID]
	if !ok || stored.Status != domain.RefundStatusPending {
		return repository.ErrStaleState
	}
	stored.Status = r.Status
	stored.ProcessedAt = r.ProcessedAt
	return nil
}

// ──────────────────────────────────────────────
// MOCK WEBHOOK LOG REPOSITORY
// ──────────────────────────────────────────────

// MockWebhookLogRepository is a mock implementation of WebhookLogRepository.
type MockWebhookLogRepository struct {
	mu    sync.RWMutex
	logs  map[string]*domain.WebhookLog
	order []string

	RecordAttemptCallCount int32
}

// NewMockWebhookLogRepository creates a new mock webhook log repository.
func NewMockWebhookLogRepository() *MockWebhookLogRepository {
	return &MockWebhookLogRepository{logs: make(map[string]*domain.WebhookLog)}
}

// All returns every log, oldest first.
func (m *MockWebhookLogRepository) All() []*domain.WebhookLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.WebhookLog, 0, len(m.order))
	for _, id := range m.order {
		copy := *m.logs[id]
		result = append(result, &copy)
	}
	return result
}

// GetLog returns a log for test assertions.
func (m *MockWebhookLogRepository) GetLog(id string) *domain.WebhookLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.logs[id]
	if !ok {
		return nil
	}
	copy := *l
	return &copy
}

func (m *MockWebhookLogRepository) Create(ctx context.Context, l *domain.WebhookLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *l
	m.logs[l.ID] = &copy
	m.order = append(m.order, l.ID)
	return nil
}

func (m *MockWebhookLogRepository) GetByID(ctx context.Context, id string) (*domain.WebhookLog, error) {
	l := m.GetLog(id)
	if l == nil {
		return nil, repository.ErrNotFound
	}
	return l, nil
}

func (m *MockWebhookLogRepository) ListByMerchant(ctx context.Context, merchantID string) ([]*domain.WebhookLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.WebhookLog
	for i := len(m.order) - 1; i >= 0; i-- {
		l := m.logs[m.order[i]]
		if l.MerchantID == merchantID {
			copy := *l
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockWebhookLogRepository) FindDueRetries(ctx context.Context, now time.Time) ([]*domain.WebhookLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.WebhookLog
	for _, l := range m.logs {
		if l.Status == domain.WebhookStatusPending && l.NextRetryAt != nil && !l.NextRetryAt.After(now) {
			copy := *l
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].NextRetryAt.Before(*result[j].NextRetryAt) })
	return result, nil
}

func (m *MockWebhookLogRepository) RecordAttempt(ctx context.Context, l *domain.WebhookLog, expectedAttempts int) error {
	atomic.AddInt32(&m.RecordAttemptCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.logs[l.ID]
	if !ok || stored.Status != domain.WebhookStatusPending || stored.Attempts != expectedAttempts {
		return repository.ErrStaleState
	}
	stored.Status = l.Status
	stored.Attempts = l.Attempts
	stored.LastAttemptAt = l.LastAttemptAt
	stored.NextRetryAt = l.NextRetryAt
	stored.ResponseCode = l.ResponseCode
	stored.ResponseBody = l.ResponseBody
	return nil
}

func (m *MockWebhookLogRepository) MarkFailed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.logs[id]
	if !ok || stored.Status != domain.WebhookStatusPending {
		return repository.ErrStaleState
	}
	stored.Status = domain.WebhookStatusFailed
	return nil
}

func (m *MockWebhookLogRepository) ClearNextRetry(ctx context.Context, id string, attempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.logs[id]
	if !ok || stored.Status != domain.WebhookStatusPending || stored.Attempts != attempts {
		return repository.ErrStaleState
	}
	stored.NextRetryAt = nil
	return nil
}

func (m *MockWebhookLogRepository) ScheduleRetry(ctx context.Context, id string, attempts int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.logs[id]
	if !ok || stored.Status != domain.WebhookStatusPending || stored.Attempts != attempts || stored.NextRetryAt != nil {
		return repository.ErrStaleState
	}
	next := at
	stored.NextRetryAt = &next
	return nil
}

func (m *MockWebhookLogRepository) ResetForRetry(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.logs[id]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = domain.WebhookStatusPending
	stored.Attempts = 0
	stored.NextRetryAt = nil
	return nil
}

// ──────────────────────────────────────────────
// MOCK IDEMPOTENCY KEY REPOSITORY
// ──────────────────────────────────────────────

// MockIdempotencyKeyRepository is a mock implementation of IdempotencyKeyRepository.
type MockIdempotencyKeyRepository struct {
	mu      sync.Mutex
	entries map[string]*domain.IdempotencyKey

	DeleteCallCount int32
}

// NewMockIdempotencyKeyRepository creates a new mock idempotency key repository.
func NewMockIdempotencyKeyRepository() *MockIdempotencyKeyRepository {
	return &MockIdempotencyKeyRepository{entries: make(map[string]*domain.IdempotencyKey)}
}

func idempotencyID(key, merchantID string) string {
	return merchantID + "/" + key
}

func (m *MockIdempotencyKeyRepository) Get(ctx context.Context, key, merchantID string) (*domain.IdempotencyKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[idempotencyID(key, merchantID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *e
	return &copy, nil
}

func (m *MockIdempotencyKeyRepository) Create(ctx context.Context, e *domain.IdempotencyKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := idempotencyID(e.Key, e.MerchantID)
	if _, ok := m.entries[id]; ok {
		return repository.ErrDuplicate
	}
	copy := *e
	m.entries[id] = &copy
	return nil
}

func (m *MockIdempotencyKeyRepository) Delete(ctx context.Context, key, merchantID string) error {
	atomic.AddInt32(&m.DeleteCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, idempotencyID(key, merchantID))
	return nil
}

// ──────────────────────────────────────────────
// MOCK JOB QUEUE
// ──────────────────────────────────────────────

// MockJobQueue is an in-memory FIFO queue per queue name.
type MockJobQueue struct {
	mu     sync.Mutex
	queues map[domain.QueueName]chan domain.Job

	// Error injection
	EnqueueError error
}

// NewMockJobQueue creates a new mock job queue.
func NewMockJobQueue() *MockJobQueue {
	q := &MockJobQueue{queues: make(map[domain.QueueName]chan domain.Job)}
	for _, name := range domain.Queues {
		q.queues[name] = make(chan domain.Job, 1024)
	}
	return q
}

func (q *MockJobQueue) Enqueue(ctx context.Context, job domain.Job) error {
	if q.EnqueueError != nil {
		return q.EnqueueError
	}
	q.mu.Lock()
	ch, ok := q.queues[job.Queue]
	q.mu.Unlock()
	if !ok {
		return errors.New("unknown queue")
	}
	ch <- job
	return nil
}

func (q *MockJobQueue) Dequeue(ctx context.Context, queue domain.QueueName, timeout time.Duration) (*domain.Job, error) {
	q.mu.Lock()
	ch := q.queues[queue]
	q.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case job := <-ch:
		return &job, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MockJobQueue) Size(ctx context.Context, queue domain.QueueName) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.queues[queue])), nil
}

// Drain removes and returns every job waiting on queue.
func (q *MockJobQueue) Drain(queue domain.QueueName) []domain.Job {
	q.mu.Lock()
	ch := q.queues[queue]
	q.mu.Unlock()
	var jobs []domain.Job
	for {
		select {
		case job := <-ch:
			jobs = append(jobs, job)
		default:
			return jobs
		}
	}
}

// ──────────────────────────────────────────────
// MOCK WEBHOOK SENDER
// ──────────────────────────────────────────────

// SentWebhook records one delivery made through MockSender.
type SentWebhook struct {
	URL       string
	Payload   []byte
	Signature string
}

// MockSender replies with scripted status codes, then DefaultStatus.
type MockSender struct {
	mu       sync.Mutex
	statuses []int
	sent     []SentWebhook

	DefaultStatus int
	// Error injection: a non-nil error simulates a transport failure.
	SendError error
}

// NewMockSender creates a sender that replies with statuses in order.
func NewMockSender(statuses ...int) *MockSender {
	return &MockSender{statuses: statuses, DefaultStatus: 200}
}

func (s *MockSender) Send(ctx context.Context, url string, payload []byte, signature string) (*worker.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, SentWebhook{URL: url, Payload: payload, Signature: signature})
	if s.SendError != nil {
		return nil, s.SendError
	}
	status := s.DefaultStatus
	if len(s.statuses) > 0 {
		status = s.statuses[0]
		s.statuses = s.statuses[1:]
	}
	return &worker.Delivery{StatusCode: status, Body: "ok"}, nil
}

// Sent returns every delivery made so far.
func (s *MockSender) Sent() []SentWebhook {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentWebhook(nil), s.sent...)
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is an in-memory idempotency lock keyed to owner tokens.
type MockLockStore struct {
	mu     sync.Mutex
	held   map[string]string
	tokens int
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{held: make(map[string]string)}
}

func (m *MockLockStore) AcquireIdempotencyLock(ctx context.Context, key, merchantID string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := idempotencyID(key, merchantID)
	if _, ok := m.held[id]; ok {
		return "", false, nil
	}
	m.tokens++
	token := fmt.Sprintf("token-%d", m.tokens)
	m.held[id] = token
	return token, true, nil
}

func (m *MockLockStore) ReleaseIdempotencyLock(ctx context.Context, key, merchantID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := idempotencyID(key, merchantID)
	if m.held[id] == token {
		delete(m.held, id)
	}
	return nil
}

// ──────────────────────────────────────────────
// FAKE CLOCK
// ──────────────────────────────────────────────

// FakeClock is a manually advanced clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock frozen at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
