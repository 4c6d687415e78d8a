package domain

import "time"

// Merchant represents an API client of the gateway.
type Merchant struct {
	ID            string
	Name          string
	Email         string
	APIKey        string
	APISecret     string
	WebhookURL    string
	WebhookSecret string
	CreatedAt     time.Time
}

// HasWebhook reports whether the merchant configured a delivery endpoint.
func (m *Merchant) HasWebhook() bool {
	return m.WebhookURL != ""
}
