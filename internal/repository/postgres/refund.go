package postgres

import (
	"context"
	"database/sql"
	"errors"

	"gateway/internal/domain"
	"gateway/internal/repository"
)

const refundColumns = `id, payment_id, merchant_id, amount, reason, status, created_at, processed_at`

// RefundRepository is a PostgreSQL implementation of repository.RefundRepository.
type RefundRepository struct {
	db *sql.DB
	q  Querier
}

// NewRefundRepository creates a new PostgreSQL refund repository.
func NewRefundRepository(db *sql.DB) *RefundRepository {
	return &RefundRepository{db: db, q: db}
}

// NewRefundRepositoryWithTx creates a refund repository using a transaction.
// CreateWithinLimit then runs inside tx instead of opening its own.
func NewRefundRepositoryWithTx(tx *sql.Tx) *RefundRepository {
	return &RefundRepository{q: tx}
}

// CreateWithinLimit persists a refund if the refunded total stays within limit.
// The payment row is locked for the duration so concurrent refunds serialise.
func (r *RefundRepository) CreateWithinLimit(ctx context.Context, refund *domain.Refund, limit int64) (err error) {
	if r.db == nil {
		return createRefundWithinLimit(ctx, r.q, refund, limit)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = createRefundWithinLimit(ctx, tx, refund, limit); err != nil {
		return err
	}

	return tx.Commit()
}

func createRefundWithinLimit(ctx context.Context, q Querier, refund *domain.Refund, limit int64) error {
	var paymentID string
	err := q.QueryRowContext(ctx, `SELECT id FROM payments WHERE id = $1 FOR UPDATE`, refund.PaymentID).Scan(&paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}

	var refunded int64
	err = q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM refunds WHERE payment_id = $1`,
		refund.PaymentID,
	).Scan(&refunded)
	if err != nil {
		return err
	}

	if refunded+refund.Amount > limit {
		return repository.ErrRefundLimitExceeded
	}

	query := `
		INSERT INTO refunds (` + refundColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = q.ExecContext(ctx, query,
		refund.ID,
		refund.PaymentID,
		refund.MerchantID,
		refund.Amount,
		nullString(refund.Reason),
		refund.Status,
		refund.CreatedAt,
		nullTime(refund.ProcessedAt),
	)

	return err
}

// GetByID retrieves a refund by ID.
func (r *RefundRepository) GetByID(ctx context.Context, id string) (*domain.Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE id = $1`

	refund, err := scanRefund(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return refund, nil
}

// ListByPayment retrieves all refunds of a payment.
func (r *RefundRepository) ListByPayment(ctx context.Context, paymentID string) ([]*domain.Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE payment_id = $1 ORDER BY created_at`

	rows, err := r.q.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refunds []*domain.Refund
	for rows.Next() {
		refund, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, refund)
	}

	return refunds, rows.Err()
}

// TotalRefunded sums the amounts of all refunds of a payment.
func (r *RefundRepository) TotalRefunded(ctx context.Context, paymentID string) (int64, error) {
	var total int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM refunds WHERE payment_id = $1`,
		paymentID,
	).Scan(&total)
	return total, err
}

// MarkProcessed moves a pending refund to processed.
func (r *RefundRepository) MarkProcessed(ctx context.Context, refund *domain.Refund) error {
	query := `
		UPDATE refunds SET status = $1, processed_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.q.ExecContext(ctx, query,
		refund.Status,
		nullTime(refund.ProcessedAt),
		refund.ID,
		domain.RefundStatusPending,
	)
	if err != nil {
		return err
	}

	return expectOneRow(result, repository.ErrStaleState)
}

func scanRefund(row rowScanner) (*domain.Refund, error) {
	var (
		refund      domain.Refund
		reason      sql.NullString
		processedAt sql.NullTime
	)

	err := row.Scan(
		&refund.ID,
		&refund.PaymentID,
		&refund.MerchantID,
		&refund.Amount,
		&reason,
		&refund.Status,
		&refund.CreatedAt,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}

	refund.Reason = reason.String
	refund.ProcessedAt = timePtr(processedAt)
	return &refund, nil
}
