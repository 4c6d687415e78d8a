package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"gateway/internal/domain"
	"gateway/internal/repository"
)

// pqUniqueViolation is the SQLSTATE for unique_violation.
const pqUniqueViolation = "23505"

// IdempotencyKeyRepository is a PostgreSQL implementation of repository.IdempotencyKeyRepository.
type IdempotencyKeyRepository struct {
	q Querier
}

// NewIdempotencyKeyRepository creates a new PostgreSQL idempotency key repository.
func NewIdempotencyKeyRepository(db *sql.DB) *IdempotencyKeyRepository {
	return &IdempotencyKeyRepository{q: db}
}

// Get retrieves the cached entry for (key, merchantID), expired or not.
func (r *IdempotencyKeyRepository) Get(ctx context.Context, key, merchantID string) (*domain.IdempotencyKey, error) {
	query := `
		SELECT key, merchant_id, response_status, response_body, created_at, expires_at
		FROM idempotency_keys WHERE key = $1 AND merchant_id = $2
	`

	var entry domain.IdempotencyKey

	err := r.q.QueryRowContext(ctx, query, key, merchantID).Scan(
		&entry.Key,
		&entry.MerchantID,
		&entry.Response.StatusCode,
		&entry.Response.Body,
		&entry.CreatedAt,
		&entry.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &entry, nil
}

// Create stores a new entry. An existing (key, merchantID) yields repository.ErrDuplicate.
func (r *IdempotencyKeyRepository) Create(ctx context.Context, entry *domain.IdempotencyKey) error {
	body := entry.Response.Body
	if body == nil {
		body = []byte{}
	}

	query := `
		INSERT INTO idempotency_keys (key, merchant_id, response_status, response_body, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		entry.Key,
		entry.MerchantID,
		entry.Response.StatusCode,
		body,
		entry.CreatedAt,
		entry.ExpiresAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return repository.ErrDuplicate
	}

	return err
}

// Delete removes the entry for (key, merchantID), if any.
func (r *IdempotencyKeyRepository) Delete(ctx context.Context, key, merchantID string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM idempotency_keys WHERE key = $1 AND merchant_id = $2`,
		key, merchantID,
	)
	return err
}
