package service

import "errors"

var (
	// ErrInvalidAmount is returned when a payment amount is not positive.
	ErrInvalidAmount = errors.New("amount must be a positive integer in minor units")

	// ErrInvalidMethod is returned when the payment method is not supported.
	ErrInvalidMethod = errors.New("method must be one of upi, card")

	// ErrInvalidOrderID is returned when order_id is empty.
	ErrInvalidOrderID = errors.New("order_id is required")

	// ErrInvalidPaymentID is returned when payment ID is empty.
	ErrInvalidPaymentID = errors.New("invalid payment id")

	// ErrPaymentNotCapturable is returned when capturing a payment that did not succeed.
	ErrPaymentNotCapturable = errors.New("payment not in capturable state")

	// ErrInvalidRefundAmount is returned when a refund amount is not positive.
	ErrInvalidRefundAmount = errors.New("refund amount must be a positive integer in minor units")

	// ErrPaymentNotSuccessful is returned when refunding a payment that did not succeed.
	ErrPaymentNotSuccessful = errors.New("payment not successful")

	// ErrRefundExceedsAmount is returned when a refund would exceed the refundable amount.
	ErrRefundExceedsAmount = errors.New("refund amount exceeds available amount")

	// ErrIdempotencyInProgress is returned when a request with the same key is still running.
	ErrIdempotencyInProgress = errors.New("a request with this idempotency key is in progress")

	// ErrInvalidCredentials is returned when the API key/secret pair does not match a merchant.
	ErrInvalidCredentials = errors.New("invalid api credentials")
)
