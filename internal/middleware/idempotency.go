package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gateway/internal/domain"
	"gateway/internal/logger"
	"gateway/internal/service"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	// ReplayedHeader marks a response served from the idempotency store.
	ReplayedHeader = "Idempotent-Replayed"

	idempotencyLockTTL = 30 * time.Second
)

// IdempotencyLocks marks a (key, merchant) request as in flight.
type IdempotencyLocks interface {
	AcquireIdempotencyLock(ctx context.Context, key, merchantID string, ttl time.Duration) (string, bool, error)
	ReleaseIdempotencyLock(ctx context.Context, key, merchantID, token string) error
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the cached response for a repeated Idempotency-Key
// of the authenticated merchant. A 2xx response to a first request is cached
// for ttl. locks may be nil, in which case concurrent first requests are not
// serialised. Must run after Auth.
func Idempotency(store service.IdempotencyStore, locks IdempotencyLocks, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		merchant := MerchantFromContext(c)
		if key == "" || merchant == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		if replay(c, store, key, merchant.ID) {
			return
		}

		if locks != nil {
			token, acquired, err := locks.AcquireIdempotencyLock(ctx, key, merchant.ID, idempotencyLockTTL)
			if err != nil {
				_ = c.Error(err)
				abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				return
			}
			if !acquired {
				abortWithError(c, http.StatusConflict, "CONFLICT_ERROR", service.ErrIdempotencyInProgress.Error())
				return
			}
			defer func() {
				if err := locks.ReleaseIdempotencyLock(context.WithoutCancel(ctx), key, merchant.ID, token); err != nil {
					logger.Warn(ctx).Err(err).Msg("release idempotency lock failed")
				}
			}()

			// The previous holder may have stored its response before releasing.
			if replay(c, store, key, merchant.ID) {
				return
			}
		}

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}

		resp := domain.CachedResponse{StatusCode: status, Body: w.body.Bytes()}
		if err := store.Store(context.WithoutCancel(ctx), key, merchant.ID, resp, ttl); err != nil {
			logger.Error(ctx).Err(err).Str("merchant_id", merchant.ID).Msg("store idempotent response failed")
		}
	}
}

// replay writes the cached response for (key, merchantID) and aborts the
// chain. It reports whether the request was handled.
func replay(c *gin.Context, store service.IdempotencyStore, key, merchantID string) bool {
	cached, err := store.Lookup(c.Request.Context(), key, merchantID)
	if err != nil {
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return true
	}

	if cached == nil {
		return false
	}

	c.Header(ReplayedHeader, "true")
	c.Data(cached.StatusCode, "application/json; charset=utf-8", cached.Body)
	c.Abort()
	return true
}
