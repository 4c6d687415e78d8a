package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gateway/internal/domain"
	"gateway/internal/repository"
)

const paymentColumns = `id, merchant_id, order_id, amount, currency, method, vpa, status,
	captured, error_code, error_description, created_at, updated_at`

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.MerchantID,
		payment.OrderID,
		payment.Amount,
		payment.Currency,
		payment.Method,
		nullString(payment.VPA),
		payment.Status,
		payment.Captured,
		nullString(payment.ErrorCode),
		nullString(payment.ErrorDescription),
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	return err
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return payment, nil
}

// ListByMerchant retrieves a merchant's payments, newest first.
func (r *PaymentRepository) ListByMerchant(ctx context.Context, merchantID string, limit int) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments WHERE merchant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.QueryContext(ctx, query, merchantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

// CountByStatus counts payments in the given status.
func (r *PaymentRepository) CountByStatus(ctx context.Context, status domain.PaymentStatus) (int64, error) {
	var count int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE status = $1`, status).Scan(&count)
	return count, err
}

// UpdateOutcome writes the settlement result of a pending payment.
func (r *PaymentRepository) UpdateOutcome(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, error_code = $2, error_description = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		payment.Status,
		nullString(payment.ErrorCode),
		nullString(payment.ErrorDescription),
		payment.UpdatedAt,
		payment.ID,
		domain.PaymentStatusPending,
	)
	if err != nil {
		return err
	}

	return expectOneRow(result, repository.ErrStaleState)
}

// MarkCaptured sets the captured flag on a successful payment.
func (r *PaymentRepository) MarkCaptured(ctx context.Context, id string) error {
	query := `
		UPDATE payments SET captured = TRUE, updated_at = $1
		WHERE id = $2 AND status = $3
	`

	result, err := r.q.ExecContext(ctx, query, time.Now().UTC(), id, domain.PaymentStatusSuccess)
	if err != nil {
		return err
	}

	return expectOneRow(result, repository.ErrStaleState)
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var (
		payment          domain.Payment
		vpa              sql.NullString
		errorCode        sql.NullString
		errorDescription sql.NullString
	)

	err := row.Scan(
		&payment.ID,
		&payment.MerchantID,
		&payment.OrderID,
		&payment.Amount,
		&payment.Currency,
		&payment.Method,
		&vpa,
		&payment.Status,
		&payment.Captured,
		&errorCode,
		&errorDescription,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.VPA = vpa.String
	payment.ErrorCode = errorCode.String
	payment.ErrorDescription = errorDescription.String
	return &payment, nil
}
