package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gateway/internal/domain"
	"gateway/internal/middleware"
	"gateway/internal/service"
)

// WebhookHandler handles HTTP requests for webhook logs.
type WebhookHandler struct {
	webhookService *service.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookService *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// WebhookLogResponse is the HTTP representation of a webhook log.
type WebhookLogResponse struct {
	ID            string          `json:"id"`
	Event         string          `json:"event"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"`
	Attempts      int             `json:"attempts"`
	LastAttemptAt *time.Time      `json:"last_attempt_at"`
	NextRetryAt   *time.Time      `json:"next_retry_at"`
	ResponseCode  *int            `json:"response_code"`
	ResponseBody  string          `json:"response_body,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// WebhookListResponse wraps a list of webhook logs.
type WebhookListResponse struct {
	Data  []WebhookLogResponse `json:"data"`
	Total int                  `json:"total"`
}

// RetryResponse acknowledges a manual retry.
type RetryResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ListWebhooks handles GET /api/v1/webhooks
func (h *WebhookHandler) ListWebhooks(c *gin.Context) {
	merchant := middleware.MerchantFromContext(c)

	logs, err := h.webhookService.ListLogs(c.Request.Context(), merchant.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]WebhookLogResponse, 0, len(logs))
	for _, l := range logs {
		data = append(data, toWebhookLogResponse(l))
	}

	respondJSON(c, http.StatusOK, WebhookListResponse{Data: data, Total: len(data)})
}

// RetryWebhook handles POST /api/v1/webhooks/:id/retry
func (h *WebhookHandler) RetryWebhook(c *gin.Context) {
	merchant := middleware.MerchantFromContext(c)

	if err := h.webhookService.Retry(c.Request.Context(), merchant.ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, RetryResponse{
		Status:  string(domain.WebhookStatusPending),
		Message: "Retry scheduled",
	})
}

func toWebhookLogResponse(l *domain.WebhookLog) WebhookLogResponse {
	payload := json.RawMessage(l.Payload)
	if !json.Valid(payload) {
		payload, _ = json.Marshal(l.Payload)
	}

	return WebhookLogResponse{
		ID:            l.ID,
		Event:         l.Event,
		Payload:       payload,
		Status:        string(l.Status),
		Attempts:      l.Attempts,
		LastAttemptAt: l.LastAttemptAt,
		NextRetryAt:   l.NextRetryAt,
		ResponseCode:  l.ResponseCode,
		ResponseBody:  l.ResponseBody,
		CreatedAt:     l.CreatedAt,
	}
}
