package domain

import "time"

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

// PaymentMethod represents the instrument a payment is made with.
type PaymentMethod string

const (
	PaymentMethodUPI  PaymentMethod = "upi"
	PaymentMethodCard PaymentMethod = "card"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodUPI || m == PaymentMethodCard
}

// ErrorCodeBankFailure is set on payments rejected by the simulated bank.
const ErrorCodeBankFailure = "BANK_FAILURE"

// Payment represents a merchant payment. Amount is in minor currency units.
type Payment struct {
	ID               string
	MerchantID       string
	OrderID          string
	Amount           int64
	Currency         string
	Method           PaymentMethod
	VPA              string
	Status           PaymentStatus
	Captured         bool
	ErrorCode        string
	ErrorDescription string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
