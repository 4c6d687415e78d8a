package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/newrelic/go-agent/v3/integrations/nrpq" // Registers "nrpostgres" driver
	"github.com/newrelic/go-agent/v3/newrelic"

	"gateway/internal/config"
	"gateway/internal/logger"
)

const (
	// apiConnHeadroom covers request handlers and the refund admission
	// transaction on top of the worker loops.
	apiConnHeadroom = 20

	pingAttempts = 5
	pingWait     = time.Second
)

// NewDatabase opens the gateway's PostgreSQL pool, sized for the configured
// worker loops. If nrApp is provided, the New Relic instrumented driver is used.
func NewDatabase(ctx context.Context, cfg config.DatabaseConfig, workers config.WorkerConfig, nrApp *newrelic.Application) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	driver := "postgres"
	if nrApp != nil {
		driver = "nrpostgres"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database with %s: %w", driver, err)
	}

	maxOpen, maxIdle := poolLimits(workers)
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := pingWithRetry(ctx, db, pingAttempts, pingWait); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// poolLimits returns the open and idle connection limits. Each consumer loop
// and the retry sweeper hold at most one connection at a time.
func poolLimits(workers config.WorkerConfig) (maxOpen, maxIdle int) {
	loops := max(workers.PaymentWorkers, 0) + max(workers.RefundWorkers, 0) + max(workers.WebhookWorkers, 0) + 1
	return loops + apiConnHeadroom, loops
}

// pingWithRetry waits for the database to accept connections.
func pingWithRetry(ctx context.Context, db *sql.DB, attempts int, wait time.Duration) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		logger.Warn(ctx).Err(err).Int("attempt", attempt).Msg("database not ready, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("failed to ping database: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("failed to ping database after %d attempts: %w", attempts, err)
}
