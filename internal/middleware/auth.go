package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gateway/internal/domain"
	"gateway/internal/logger"
	"gateway/internal/repository"
)

const (
	APIKeyHeader    = "X-Api-Key"
	APISecretHeader = "X-Api-Secret"

	merchantContextKey = "merchant"
)

// MerchantCache caches merchants by API key.
type MerchantCache interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.Merchant, error)
	Set(ctx context.Context, m *domain.Merchant) error
}

// Auth authenticates the merchant from the API key and secret headers.
// cache may be nil.
func Auth(merchants repository.MerchantRepository, cache MerchantCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(APIKeyHeader)
		apiSecret := c.GetHeader(APISecretHeader)
		if apiKey == "" || apiSecret == "" {
			abortWithError(c, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Invalid API credentials")
			return
		}

		ctx := c.Request.Context()

		merchant, err := lookupMerchant(ctx, merchants, cache, apiKey)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				abortWithError(c, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Invalid API credentials")
				return
			}
			_ = c.Error(err)
			abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			return
		}

		if subtle.ConstantTimeCompare([]byte(merchant.APISecret), []byte(apiSecret)) != 1 {
			abortWithError(c, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Invalid API credentials")
			return
		}

		c.Set(merchantContextKey, merchant)
		c.Next()
	}
}

func lookupMerchant(ctx context.Context, merchants repository.MerchantRepository, cache MerchantCache, apiKey string) (*domain.Merchant, error) {
	if cache != nil {
		cached, err := cache.GetByAPIKey(ctx, apiKey)
		if err != nil {
			logger.Warn(ctx).Err(err).Msg("merchant cache read failed")
		}
		if cached != nil {
			return cached, nil
		}
	}

	merchant, err := merchants.GetByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if err := cache.Set(ctx, merchant); err != nil {
			logger.Warn(ctx).Err(err).Msg("merchant cache write failed")
		}
	}

	return merchant, nil
}

// MerchantFromContext returns the merchant authenticated by Auth, or nil.
func MerchantFromContext(c *gin.Context) *domain.Merchant {
	v, ok := c.Get(merchantContextKey)
	if !ok {
		return nil
	}
	m, _ := v.(*domain.Merchant)
	return m
}
