package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gateway/internal/repository"
	"gateway/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code and a human description.
type ErrorDetail struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Internal errors are attached to the context and not leaked to the client.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)

	description := err.Error()
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		description = "Internal server error"
	}

	c.JSON(code, ErrorResponse{Error: ErrorDetail{Code: errorCode(code), Description: description}})
}

// respondBadRequest sends a 400 with the given description.
func respondBadRequest(c *gin.Context, description string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{Code: errorCode(http.StatusBadRequest), Description: description}})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation and business rule errors - Bad Request
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidMethod),
		errors.Is(err, service.ErrInvalidOrderID),
		errors.Is(err, service.ErrInvalidPaymentID),
		errors.Is(err, service.ErrInvalidRefundAmount),
		errors.Is(err, service.ErrPaymentNotCapturable),
		errors.Is(err, service.ErrPaymentNotSuccessful),
		errors.Is(err, service.ErrRefundExceedsAmount):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Conflict errors
	case errors.Is(err, service.ErrIdempotencyInProgress):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST_ERROR"
	case http.StatusUnauthorized:
		return "AUTHENTICATION_ERROR"
	case http.StatusNotFound:
		return "NOT_FOUND_ERROR"
	case http.StatusConflict:
		return "CONFLICT_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
