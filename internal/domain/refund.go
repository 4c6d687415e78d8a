package domain

import "time"

// RefundStatus represents the current status of a refund.
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusProcessed RefundStatus = "processed"
)

// Refund represents a partial or full refund against a successful payment.
type Refund struct {
	ID          string
	PaymentID   string
	MerchantID  string
	Amount      int64
	Reason      string
	Status      RefundStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}
