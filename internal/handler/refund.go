package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gateway/internal/domain"
	"gateway/internal/middleware"
	"gateway/internal/service"
)

// RefundHandler handles HTTP requests for refunds.
type RefundHandler struct {
	refundService *service.RefundService
}

// NewRefundHandler creates a new RefundHandler.
func NewRefundHandler(refundService *service.RefundService) *RefundHandler {
	return &RefundHandler{refundService: refundService}
}

// CreateRefundRequest is the HTTP request body for creating a refund.
type CreateRefundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// RefundResponse is the HTTP response for refund operations.
type RefundResponse struct {
	ID          string     `json:"id"`
	PaymentID   string     `json:"payment_id"`
	Amount      int64      `json:"amount"`
	Reason      string     `json:"reason,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
}

// CreateRefund handles POST /api/v1/payments/:id/refunds
func (h *RefundHandler) CreateRefund(c *gin.Context) {
	var req CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	merchant := middleware.MerchantFromContext(c)

	refund, err := h.refundService.CreateRefund(c.Request.Context(), merchant.ID, c.Param("id"), service.CreateRefundRequest{
		Amount: req.Amount,
		Reason: req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRefundResponse(refund))
}

// GetRefund handles GET /api/v1/refunds/:id
func (h *RefundHandler) GetRefund(c *gin.Context) {
	merchant := middleware.MerchantFromContext(c)

	refund, err := h.refundService.GetRefund(c.Request.Context(), merchant.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRefundResponse(refund))
}

func toRefundResponse(r *domain.Refund) RefundResponse {
	return RefundResponse{
		ID:          r.ID,
		PaymentID:   r.PaymentID,
		Amount:      r.Amount,
		Reason:      r.Reason,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		ProcessedAt: r.ProcessedAt,
	}
}
