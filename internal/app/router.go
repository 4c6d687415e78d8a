package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"

	"gateway/internal/handler"
	"gateway/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	PaymentHandler *handler.PaymentHandler
	RefundHandler  *handler.RefundHandler
	WebhookHandler *handler.WebhookHandler
	JobsHandler    *handler.JobsHandler
	HealthHandler  *handler.HealthHandler

	// Auth authenticates the merchant; Idempotency guards payment creation.
	Auth        gin.HandlerFunc
	Idempotency gin.HandlerFunc

	MetricsHandler http.Handler
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.NewRelicAttributes())
	}

	router.GET("/health", deps.HealthHandler.Health)
	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	// API v1 routes.
	v1 := router.Group("/api/v1")
	{
		v1.GET("/test/jobs/status", deps.JobsHandler.JobStatus)

		authed := v1.Group("", deps.Auth)

		payments := authed.Group("/payments")
		{
			payments.POST("", deps.Idempotency, deps.PaymentHandler.CreatePayment)
			payments.GET("", deps.PaymentHandler.ListPayments)
			payments.GET("/:id", deps.PaymentHandler.GetPayment)
			payments.POST("/:id/capture", deps.PaymentHandler.CapturePayment)
			payments.POST("/:id/refunds", deps.RefundHandler.CreateRefund)
		}

		authed.GET("/refunds/:id", deps.RefundHandler.GetRefund)

		webhooks := authed.Group("/webhooks")
		{
			webhooks.GET("", deps.WebhookHandler.ListWebhooks)
			webhooks.POST("/:id/retry", deps.WebhookHandler.RetryWebhook)
		}
	}

	return router
}
