package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrStaleState is returned when a guarded update finds the row no longer
	// in the state the caller read, e.g. another worker already advanced it.
	ErrStaleState = errors.New("entity state changed concurrently")

	// ErrRefundLimitExceeded is returned when a refund would push the refunded
	// total above the payment amount.
	ErrRefundLimitExceeded = errors.New("refund exceeds refundable amount")

	// ErrDuplicate is returned when an entity with the same identity already exists.
	ErrDuplicate = errors.New("entity already exists")
)
