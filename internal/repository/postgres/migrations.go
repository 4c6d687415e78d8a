package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// TestMerchantID is the fixed ID of the merchant created by SeedTestMerchant.
const TestMerchantID = "550e8400-e29b-41d4-a716-446655440000"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS merchants (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		api_key VARCHAR(64) NOT NULL UNIQUE,
		api_secret VARCHAR(64) NOT NULL,
		webhook_url TEXT,
		webhook_secret VARCHAR(64),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id VARCHAR(64) PRIMARY KEY,
		merchant_id UUID NOT NULL REFERENCES merchants(id),
		order_id VARCHAR(255) NOT NULL,
		amount BIGINT NOT NULL CHECK (amount > 0),
		currency VARCHAR(3) NOT NULL DEFAULT 'INR',
		method VARCHAR(20) NOT NULL,
		vpa VARCHAR(255),
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		captured BOOLEAN NOT NULL DEFAULT FALSE,
		error_code VARCHAR(50),
		error_description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_merchant_id ON payments(merchant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status)`,
	`CREATE TABLE IF NOT EXISTS refunds (
		id VARCHAR(64) PRIMARY KEY,
		payment_id VARCHAR(64) NOT NULL REFERENCES payments(id),
		merchant_id UUID NOT NULL REFERENCES merchants(id),
		amount BIGINT NOT NULL CHECK (amount > 0),
		reason TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_refunds_payment_id ON refunds(payment_id)`,
	`CREATE TABLE IF NOT EXISTS webhook_logs (
		id UUID PRIMARY KEY,
		merchant_id UUID NOT NULL REFERENCES merchants(id),
		event VARCHAR(50) NOT NULL,
		payload TEXT NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		attempts INT NOT NULL DEFAULT 0,
		last_attempt_at TIMESTAMPTZ,
		next_retry_at TIMESTAMPTZ,
		response_code INT,
		response_body TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_logs_merchant_id ON webhook_logs(merchant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_logs_retry ON webhook_logs(status, next_retry_at)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		key VARCHAR(255) NOT NULL,
		merchant_id UUID NOT NULL REFERENCES merchants(id),
		response_status INT NOT NULL,
		response_body BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (key, merchant_id)
	)`,
}

// RunMigrations creates the gateway schema. It is safe to run repeatedly.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// SeedTestMerchant inserts the well-known test merchant if it is absent.
func SeedTestMerchant(ctx context.Context, db *sql.DB, webhookURL string) error {
	query := `
		INSERT INTO merchants (id, name, email, api_key, api_secret, webhook_url, webhook_secret)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO NOTHING
	`

	_, err := db.ExecContext(ctx, query,
		TestMerchantID,
		"Test Merchant",
		"test@example.com",
		"key_test_abc123",
		"secret_test_xyz789",
		nullString(webhookURL),
		"whsec_test_abc123",
	)
	if err != nil {
		return fmt.Errorf("seed test merchant: %w", err)
	}
	return nil
}
