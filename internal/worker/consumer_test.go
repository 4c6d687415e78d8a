package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/domain"
	"gateway/internal/metrics"
	"gateway/internal/tests"
	"gateway/internal/worker"
)

// recordingProcessor records processed jobs and runs an optional hook.
type recordingProcessor struct {
	mu   sync.Mutex
	seen []string
	hook func(job domain.Job) error
}

func (p *recordingProcessor) Process(ctx context.Context, job domain.Job) error {
	p.mu.Lock()
	p.seen = append(p.seen, job.EntityID)
	p.mu.Unlock()
	if p.hook != nil {
		return p.hook(job)
	}
	return nil
}

func (p *recordingProcessor) Seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.seen...)
}

func startConsumer(t *testing.T, c *worker.Consumer) (cancel func()) {
	t.Helper()

	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()

	return func() {
		cancelCtx()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("consumer did not stop after cancellation")
		}
	}
}

func TestConsumer_ProcessesInOrder(t *testing.T) {
	queue := tests.NewMockJobQueue()
	proc := &recordingProcessor{}
	c := worker.NewConsumer(worker.ConsumerConfig{Queue: domain.QueueRefunds, PollTimeout: 50 * time.Millisecond}, queue, proc)

	for _, id := range []string{"rfnd_1", "rfnd_2", "rfnd_3"} {
		require.NoError(t, queue.Enqueue(context.Background(), domain.NewRefundJob(id)))
	}

	stop := startConsumer(t, c)
	require.Eventually(t, func() bool { return len(proc.Seen()) == 3 }, time.Second, 10*time.Millisecond)
	stop()

	assert.Equal(t, []string{"rfnd_1", "rfnd_2", "rfnd_3"}, proc.Seen())
}

func TestConsumer_FailingJobs_DoNotStopLoop(t *testing.T) {
	queue := tests.NewMockJobQueue()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	proc := &recordingProcessor{hook: func(job domain.Job) error {
		switch job.EntityID {
		case "pay_panic":
			panic("boom")
		case "pay_error":
			return errors.New("database unavailable")
		}
		return nil
	}}
	c := worker.NewConsumer(worker.ConsumerConfig{
		Queue:       domain.QueuePayments,
		PollTimeout: 50 * time.Millisecond,
		Metrics:     m,
	}, queue, proc)

	for _, id := range []string{"pay_panic", "pay_error", "pay_ok"} {
		require.NoError(t, queue.Enqueue(context.Background(), domain.NewPaymentJob(id)))
	}

	stop := startConsumer(t, c)
	require.Eventually(t, func() bool { return len(proc.Seen()) == 3 }, time.Second, 10*time.Millisecond)
	stop()

	queueLabel := string(domain.QueuePayments)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsProcessed.WithLabelValues(queueLabel, metrics.ResultPanic)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsProcessed.WithLabelValues(queueLabel, metrics.ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsProcessed.WithLabelValues(queueLabel, metrics.ResultOK)))
}

func TestConsumer_InFlightJobCompletesOnShutdown(t *testing.T) {
	queue := tests.NewMockJobQueue()
	started := make(chan struct{})
	release := make(chan struct{})

	var (
		mu        sync.Mutex
		completed bool
		ctxErr    error
	)
	proc := &recordingProcessor{hook: func(job domain.Job) error {
		close(started)
		<-release
		mu.Lock()
		completed = true
		mu.Unlock()
		return nil
	}}
	c := worker.NewConsumer(worker.ConsumerConfig{Queue: domain.QueueWebhooks, PollTimeout: 50 * time.Millisecond}, queue, worker.ProcessorFunc(func(ctx context.Context, job domain.Job) error {
		err := proc.Process(ctx, job)
		mu.Lock()
		ctxErr = ctx.Err()
		mu.Unlock()
		return err
	}))

	require.NoError(t, queue.Enqueue(context.Background(), domain.NewWebhookJob("wh_1")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()

	<-started
	cancel()

	select {
	case <-done:
		t.Fatal("consumer returned before the in-flight job finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, completed)
	assert.NoError(t, ctxErr, "job context must outlive shutdown")
}

func TestRunner_StopsAllWorkers(t *testing.T) {
	queue := tests.NewMockJobQueue()
	logs := tests.NewMockWebhookLogRepository()

	var consumers []*worker.Consumer
	for _, q := range domain.Queues {
		consumers = append(consumers, worker.NewConsumer(
			worker.ConsumerConfig{Queue: q, PollTimeout: 20 * time.Millisecond},
			queue,
			&recordingProcessor{},
		))
	}
	runner := worker.NewRunner(worker.NewRetrySweeper(logs, queue, 10*time.Millisecond, nil), consumers...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Run(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}
