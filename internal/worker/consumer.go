package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"gateway/internal/domain"
	"gateway/internal/logger"
	"gateway/internal/metrics"
)

const (
	defaultPollTimeout = 5 * time.Second
	dequeueErrorPause  = time.Second
)

// Dequeuer is the consumer side of the work queues.
type Dequeuer interface {
	Dequeue(ctx context.Context, queue domain.QueueName, timeout time.Duration) (*domain.Job, error)
}

// Enqueuer is the producer side of the work queues.
type Enqueuer interface {
	Enqueue(ctx context.Context, job domain.Job) error
}

// Processor handles one job of a queue.
type Processor interface {
	Process(ctx context.Context, job domain.Job) error
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc func(ctx context.Context, job domain.Job) error

// Process calls f(ctx, job).
func (f ProcessorFunc) Process(ctx context.Context, job domain.Job) error {
	return f(ctx, job)
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Queue       domain.QueueName
	PollTimeout time.Duration
	NewRelicApp *newrelic.Application
	Metrics     *metrics.Metrics
}

// Consumer is a sequential loop that takes jobs off one queue and hands them
// to a Processor, one at a time.
type Consumer struct {
	cfg       ConsumerConfig
	source    Dequeuer
	processor Processor
}

// NewConsumer creates a new Consumer.
func NewConsumer(cfg ConsumerConfig, source Dequeuer, processor Processor) *Consumer {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	return &Consumer{cfg: cfg, source: source, processor: processor}
}

// Queue returns the queue the consumer reads from.
func (c *Consumer) Queue() domain.QueueName {
	return c.cfg.Queue
}

// Run consumes jobs until ctx is cancelled. A job already dequeued when ctx
// is cancelled still runs to completion.
func (c *Consumer) Run(ctx context.Context) {
	logger.Info(ctx).Str("queue", string(c.cfg.Queue)).Msg("consumer started")
	defer func() {
		logger.Info(context.WithoutCancel(ctx)).Str("queue", string(c.cfg.Queue)).Msg("consumer stopped")
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := c.source.Dequeue(ctx, c.cfg.Queue, c.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx).Err(err).Str("queue", string(c.cfg.Queue)).Msg("dequeue failed")
			pause(ctx, dequeueErrorPause)
			continue
		}

		if job == nil {
			continue
		}

		c.handle(context.WithoutCancel(ctx), *job)
	}
}

// handle processes one job. Errors and panics are logged and never escape.
func (c *Consumer) handle(ctx context.Context, job domain.Job) {
	start := time.Now()

	txn := c.cfg.NewRelicApp.StartTransaction("job/" + string(c.cfg.Queue))
	defer txn.End()
	txn.AddAttribute("entity_id", job.EntityID)
	ctx = newrelic.NewContext(ctx, txn)

	result := metrics.ResultOK
	defer func() {
		if r := recover(); r != nil {
			result = metrics.ResultPanic
			txn.NoticeError(fmt.Errorf("panic: %v", r))
			logger.Error(ctx).
				Str("queue", string(c.cfg.Queue)).
				Str("job_id", job.EntityID).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("job panicked")
		}
		c.cfg.Metrics.ObserveJob(c.cfg.Queue, result, time.Since(start))
	}()

	if err := c.processor.Process(ctx, job); err != nil {
		result = metrics.ResultError
		txn.NoticeError(err)
		logger.Error(ctx).
			Err(err).
			Str("queue", string(c.cfg.Queue)).
			Str("job_id", job.EntityID).
			Msg("job failed")
		return
	}

	logger.Debug(ctx).
		Str("queue", string(c.cfg.Queue)).
		Str("job_id", job.EntityID).
		Dur("elapsed", time.Since(start)).
		Msg("job processed")
}

// pause waits for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
