package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"gateway/internal/service"
)

// maxResponseBody caps the merchant response body kept in the webhook log.
const maxResponseBody = 64 << 10

// Delivery is the merchant endpoint's reply to one webhook POST.
type Delivery struct {
	StatusCode int
	Body       string
}

// OK reports whether the endpoint acknowledged the webhook.
func (d *Delivery) OK() bool {
	return d.StatusCode >= 200 && d.StatusCode < 300
}

// Sender posts a signed webhook payload to a merchant endpoint. A transport
// failure is returned as an error; any HTTP reply is a Delivery.
type Sender interface {
	Send(ctx context.Context, url string, payload []byte, signature string) (*Delivery, error)
}

// HTTPSender delivers webhooks over HTTP.
type HTTPSender struct {
	client *http.Client
}

// NewHTTPSender creates an HTTPSender whose requests are bounded by timeout.
// Outbound calls are recorded as external segments of the job transaction.
func NewHTTPSender(timeout time.Duration) *HTTPSender {
	return &HTTPSender{
		client: &http.Client{
			Timeout:   timeout,
			Transport: newrelic.NewRoundTripper(http.DefaultTransport),
		},
	}
}

// Send issues the POST and reads at most maxResponseBody bytes of the reply.
func (s *HTTPSender) Send(ctx context.Context, url string, payload []byte, signature string) (*Delivery, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(service.SignatureHeader, signature)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Delivery{StatusCode: resp.StatusCode, Body: string(body)}, nil
}
