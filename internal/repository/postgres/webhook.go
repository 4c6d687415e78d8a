package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gateway/internal/domain"
	"gateway/internal/repository"
)

const webhookColumns = `id, merchant_id, event, payload, status, attempts, last_attempt_at,
	next_retry_at, response_code, response_body, created_at`

// WebhookLogRepository is a PostgreSQL implementation of repository.WebhookLogRepository.
type WebhookLogRepository struct {
	q Querier
}

// NewWebhookLogRepository creates a new PostgreSQL webhook log repository.
func NewWebhookLogRepository(db *sql.DB) *WebhookLogRepository {
	return &WebhookLogRepository{q: db}
}

// Create persists a new webhook log.
func (r *WebhookLogRepository) Create(ctx context.Context, log *domain.WebhookLog) error {
	query := `
		INSERT INTO webhook_logs (` + webhookColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		log.ID,
		log.MerchantID,
		log.Event,
		log.Payload,
		log.Status,
		log.Attempts,
		nullTime(log.LastAttemptAt),
		nullTime(log.NextRetryAt),
		nullInt(log.ResponseCode),
		nullString(log.ResponseBody),
		log.CreatedAt,
	)

	return err
}

// GetByID retrieves a webhook log by ID.
func (r *WebhookLogRepository) GetByID(ctx context.Context, id string) (*domain.WebhookLog, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhook_logs WHERE id = $1`

	log, err := scanWebhookLog(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return log, nil
}

// ListByMerchant retrieves a merchant's logs, newest first.
func (r *WebhookLogRepository) ListByMerchant(ctx context.Context, merchantID string) ([]*domain.WebhookLog, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhook_logs WHERE merchant_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, merchantID)
}

// FindDueRetries returns pending logs whose next retry time has passed.
func (r *WebhookLogRepository) FindDueRetries(ctx context.Context, now time.Time) ([]*domain.WebhookLog, error) {
	query := `
		SELECT ` + webhookColumns + `
		FROM webhook_logs
		WHERE status = $1 AND next_retry_at IS NOT NULL AND next_retry_at <= $2
		ORDER BY next_retry_at
	`
	return r.list(ctx, query, domain.WebhookStatusPending, now)
}

// RecordAttempt persists one delivery attempt, guarded on status and attempts.
func (r *WebhookLogRepository) RecordAttempt(ctx context.Context, log *domain.WebhookLog, expectedAttempts int) error {
	query := `
		UPDATE webhook_logs
		SET status = $1, attempts = $2, last_attempt_at = $3, next_retry_at = $4,
			response_code = $5, response_body = $6
		WHERE id = $7 AND status = $8 AND attempts = $9
	`

	result, err := r.q.ExecContext(ctx, query,
		log.Status,
		log.Attempts,
		nullTime(log.LastAttemptAt),
		nullTime(log.NextRetryAt),
		nullInt(log.ResponseCode),
		nullString(log.ResponseBody),
		log.ID,
		domain.WebhookStatusPending,
		expectedAttempts,
	)
	if err != nil {
		return err
	}

	return expectOneRow(result, repository.ErrStaleState)
}

// MarkFailed fails a pending log without consuming an attempt.
func (r *WebhookLogRepository) MarkFailed(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE webhook_logs SET status = $1 WHERE id = $2 AND status = $3`,
		domain.WebhookStatusFailed, id, domain.WebhookStatusPending,
	)
	if err != nil {
		return err
	}

	return expectOneRow(result, repository.ErrStaleState)
}

// ClearNextRetry makes a waiting log eligible for delivery again.
func (r *WebhookLogRepository) ClearNextRetry(ctx context.Context, id string, attempts int) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE webhook_logs SET next_retry_at = NULL WHERE id = $1 AND status = $2 AND attempts = $3`,
		id, domain.WebhookStatusPending, attempts,
	)
	if err != nil {
		return err
	}

	return expectOneRow(result, repository.ErrStaleState)
}

// ScheduleRetry hands an eligible log over to the retry sweeper.
func (r *WebhookLogRepository) ScheduleRetry(ctx context.Context, id string, attempts int, at time.Time) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE webhook_logs SET next_retry_at = $1
		WHERE id = $2 AND status = $3 AND attempts = $4 AND next_retry_at IS NULL`,
		at, id, domain.WebhookStatusPending, attempts,
	)
	if err != nil {
		return err
	}

	return expectOneRow(result, repository.ErrStaleState)
}

// ResetForRetry puts a log back to pending with zero attempts.
func (r *WebhookLogRepository) ResetForRetry(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE webhook_logs SET status = $1, attempts = 0, next_retry_at = NULL WHERE id = $2`,
		domain.WebhookStatusPending, id,
	)
	if err != nil {
		return err
	}

	return expectOneRow(result, repository.ErrNotFound)
}

func (r *WebhookLogRepository) list(ctx context.Context, query string, args ...any) ([]*domain.WebhookLog, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.WebhookLog
	for rows.Next() {
		log, err := scanWebhookLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}

func scanWebhookLog(row rowScanner) (*domain.WebhookLog, error) {
	var (
		log           domain.WebhookLog
		lastAttemptAt sql.NullTime
		nextRetryAt   sql.NullTime
		responseCode  sql.NullInt64
		responseBody  sql.NullString
	)

	err := row.Scan(
		&log.ID,
		&log.MerchantID,
		&log.Event,
		&log.Payload,
		&log.Status,
		&log.Attempts,
		&lastAttemptAt,
		&nextRetryAt,
		&responseCode,
		&responseBody,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	log.LastAttemptAt = timePtr(lastAttemptAt)
	log.NextRetryAt = timePtr(nextRetryAt)
	log.ResponseCode = intPtr(responseCode)
	log.ResponseBody = responseBody.String
	return &log, nil
}
