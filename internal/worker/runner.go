package worker

import (
	"context"
	"sync"

	"gateway/internal/logger"
)

// Runner runs consumers and the retry sweeper until shutdown.
type Runner struct {
	consumers []*Consumer
	sweeper   *RetrySweeper
}

// NewRunner creates a new Runner. sweeper may be nil.
func NewRunner(sweeper *RetrySweeper, consumers ...*Consumer) *Runner {
	return &Runner{consumers: consumers, sweeper: sweeper}
}

// Run starts every consumer and the sweeper, and blocks until ctx is
// cancelled and all of them have returned.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for _, c := range r.consumers {
		wg.Add(1)
		go func(c *Consumer) {
			defer wg.Done()
			c.Run(ctx)
		}(c)
	}

	if r.sweeper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.sweeper.Run(ctx)
		}()
	}

	logger.Info(ctx).Int("consumers", len(r.consumers)).Msg("workers started")
	wg.Wait()
	logger.Info(context.WithoutCancel(ctx)).Msg("workers stopped")
}
