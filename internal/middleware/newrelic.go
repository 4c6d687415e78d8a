package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicAttributes tags the request's New Relic transaction with the
// authenticated merchant and records errors attached by handlers.
// It must run after nrgin.Middleware.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		txn := nrgin.Transaction(c)
		if txn == nil {
			return
		}

		if m := MerchantFromContext(c); m != nil {
			txn.AddAttribute("merchant_id", m.ID)
		}
		if key := c.GetHeader(IdempotencyHeader); key != "" {
			txn.AddAttribute("idempotency_key", key)
		}

		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
