package domain

import "time"

// WebhookStatus represents the delivery state of a webhook log.
type WebhookStatus string

const (
	WebhookStatusPending WebhookStatus = "pending"
	WebhookStatusSuccess WebhookStatus = "success"
	WebhookStatusFailed  WebhookStatus = "failed"
)

// IsTerminal reports whether no further delivery attempt is allowed from s.
func (s WebhookStatus) IsTerminal() bool {
	return s == WebhookStatusSuccess || s == WebhookStatusFailed
}

// Webhook event names.
const (
	EventRefundProcessed = "refund.processed"
)

// PaymentEvent returns the webhook event name for a settled payment.
func PaymentEvent(status PaymentStatus) string {
	return "payment." + string(status)
}

// WebhookLog records a single outbound notification and its delivery attempts.
// Payload is immutable once the log is created.
//
// A pending log with a future NextRetryAt is waiting for the retry sweeper;
// a pending log with a nil NextRetryAt is eligible for delivery.
type WebhookLog struct {
	ID            string
	MerchantID    string
	Event         string
	Payload       string
	Status        WebhookStatus
	Attempts      int
	LastAttemptAt *time.Time
	NextRetryAt   *time.Time
	ResponseCode  *int
	ResponseBody  string
	CreatedAt     time.Time
}

// IsDue reports whether the log may be delivered at now.
func (l *WebhookLog) IsDue(now time.Time) bool {
	return l.NextRetryAt == nil || !l.NextRetryAt.After(now)
}

// WebhookEnvelope is the JSON body delivered to merchant endpoints.
type WebhookEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}
