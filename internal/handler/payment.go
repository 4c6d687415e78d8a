package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gateway/internal/domain"
	"gateway/internal/middleware"
	"gateway/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePaymentRequest is the HTTP request body for creating a payment.
type CreatePaymentRequest struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"method"`
	VPA      string `json:"vpa"`
}

// CreatePaymentResponse is the admission response for a new payment.
type CreatePaymentResponse struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Method    string    `json:"method"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentResponse is the HTTP response for payment reads.
type PaymentResponse struct {
	ID               string    `json:"id"`
	OrderID          string    `json:"order_id"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	Method           string    `json:"method"`
	VPA              string    `json:"vpa,omitempty"`
	Status           string    `json:"status"`
	Captured         bool      `json:"captured"`
	ErrorCode        string    `json:"error_code,omitempty"`
	ErrorDescription string    `json:"error_description,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CaptureResponse is the HTTP response for a capture.
type CaptureResponse struct {
	ID       string `json:"id"`
	Captured bool   `json:"captured"`
	Status   string `json:"status"`
}

// CreatePayment handles POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	merchant := middleware.MerchantFromContext(c)

	payment, err := h.paymentService.CreatePayment(c.Request.Context(), merchant.ID, service.CreatePaymentRequest{
		OrderID:  req.OrderID,
		Amount:   req.Amount,
		Currency: req.Currency,
		Method:   domain.PaymentMethod(req.Method),
		VPA:      req.VPA,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CreatePaymentResponse{
		ID:        payment.ID,
		OrderID:   payment.OrderID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		Method:    string(payment.Method),
		Status:    string(payment.Status),
		CreatedAt: payment.CreatedAt,
	})
}

// GetPayment handles GET /api/v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	merchant := middleware.MerchantFromContext(c)

	payment, err := h.paymentService.GetPayment(c.Request.Context(), merchant.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// ListPayments handles GET /api/v1/payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	merchant := middleware.MerchantFromContext(c)

	payments, err := h.paymentService.ListPayments(c.Request.Context(), merchant.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		response = append(response, toPaymentResponse(p))
	}

	respondJSON(c, http.StatusOK, response)
}

// CapturePayment handles POST /api/v1/payments/:id/capture
func (h *PaymentHandler) CapturePayment(c *gin.Context) {
	merchant := middleware.MerchantFromContext(c)

	payment, err := h.paymentService.CapturePayment(c.Request.Context(), merchant.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CaptureResponse{
		ID:       payment.ID,
		Captured: payment.Captured,
		Status:   string(payment.Status),
	})
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:               p.ID,
		OrderID:          p.OrderID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Method:           string(p.Method),
		VPA:              p.VPA,
		Status:           string(p.Status),
		Captured:         p.Captured,
		ErrorCode:        p.ErrorCode,
		ErrorDescription: p.ErrorDescription,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
