package postgres

import (
	"context"
	"database/sql"
	"errors"

	"gateway/internal/domain"
	"gateway/internal/repository"
)

// MerchantRepository is a PostgreSQL implementation of repository.MerchantRepository.
type MerchantRepository struct {
	q Querier
}

// NewMerchantRepository creates a new PostgreSQL merchant repository.
func NewMerchantRepository(db *sql.DB) *MerchantRepository {
	return &MerchantRepository{q: db}
}

// GetByID retrieves a merchant by ID.
func (r *MerchantRepository) GetByID(ctx context.Context, id string) (*domain.Merchant, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetByAPIKey retrieves a merchant by its public API key.
func (r *MerchantRepository) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Merchant, error) {
	return r.getOne(ctx, `api_key = $1`, apiKey)
}

func (r *MerchantRepository) getOne(ctx context.Context, where string, arg any) (*domain.Merchant, error) {
	query := `
		SELECT id, name, email, api_key, api_secret, webhook_url, webhook_secret, created_at
		FROM merchants WHERE ` + where

	var (
		merchant      domain.Merchant
		webhookURL    sql.NullString
		webhookSecret sql.NullString
	)

	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&merchant.ID,
		&merchant.Name,
		&merchant.Email,
		&merchant.APIKey,
		&merchant.APISecret,
		&webhookURL,
		&webhookSecret,
		&merchant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	merchant.WebhookURL = webhookURL.String
	merchant.WebhookSecret = webhookSecret.String
	return &merchant, nil
}
