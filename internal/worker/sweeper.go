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
)

const defaultSweepInterval = 10 * time.Second

// RetrySweeper re-enqueues webhook logs whose retry time has passed.
type RetrySweeper struct {
	logs     repository.WebhookLogRepository
	queue    Enqueuer
	interval time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewRetrySweeper creates a new RetrySweeper.
func NewRetrySweeper(logs repository.WebhookLogRepository, queue Enqueuer, interval time.Duration, m *metrics.Metrics) *RetrySweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &RetrySweeper{
		logs:     logs,
		queue:    queue,
		interval: interval,
		metrics:  m,
		now:      time.Now,
	}
}

// WithClock overrides the sweeper's clock.
func (s *RetrySweeper) WithClock(now func() time.Time) *RetrySweeper {
	s.now = now
	return s
}

// Run sweeps every interval until ctx is cancelled.
func (s *RetrySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info(ctx).Dur("interval", s.interval).Msg("retry sweeper started")

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx).Msg("retry sweeper stopped")
			return
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				logger.Error(ctx).Err(err).Msg("retry sweep failed")
			}
			if n > 0 {
				logger.Info(ctx).Int("requeued", n).Msg("webhook retries requeued")
			}
		}
	}
}

// SweepOnce enqueues every due webhook log and then clears its next retry
// time. It returns the number of logs handed back to the dispatcher.
func (s *RetrySweeper) SweepOnce(ctx context.Context) (int, error) {
	due, err := s.logs.FindDueRetries(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("find due retries: %w", err)
	}

	var (
		requeued int
		errs     []error
	)
	for _, log := range due {
		if err := s.queue.Enqueue(ctx, domain.NewWebhookJob(log.ID)); err != nil {
			errs = append(errs, fmt.Errorf("enqueue webhook %s: %w", log.ID, err))
			continue
		}

		// A dispatcher may already have recorded a new attempt; its retry
		// time must then survive.
		if err := s.logs.ClearNextRetry(ctx, log.ID, log.Attempts); err != nil && !errors.Is(err, repository.ErrStaleState) {
			errs = append(errs, fmt.Errorf("clear retry %s: %w", log.ID, err))
			continue
		}

		requeued++
	}

	s.metrics.ObserveRequeue(requeued)

	return requeued, errors.Join(errs...)
}
