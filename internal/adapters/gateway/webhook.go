package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/pong/pkg/metrics"
)

// Default webhook configuration constants.
const (
	defaultTimeout = 5 * time.Second
)

// WebhookDeliverer POSTs JSON payloads to a team's webhook URL.
type WebhookDeliverer struct {
	client *http.Client
}

// WebhookOption applies a configuration option to the WebhookDeliverer.
type WebhookOption func(*WebhookDeliverer)

// WithTimeout sets the per-delivery timeout.
func WithTimeout(timeout time.Duration) WebhookOption {
	return func(d *WebhookDeliverer) {
		if timeout > 0 {
			d.client.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(d *WebhookDeliverer) {
		if client != nil {
			d.client = client
		}
	}
}

// NewWebhookDeliverer creates a webhook deliverer.
func NewWebhookDeliverer(opts ...WebhookOption) *WebhookDeliverer {
	d := &WebhookDeliverer{
		client: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Deliver POSTs the payload to endpoint. A non-2xx status is an error.
func (d *WebhookDeliverer) Deliver(ctx context.Context, endpoint string, p Payload) error {
	if endpoint == "" {
		metrics.RecordDeliveryError()
		return fmt.Errorf("%w: team %q", ErrNoEndpoint, p.Team)
	}

	start := time.Now()
	defer func() {
		metrics.RecordDeliveryLatency(float64(time.Since(start).Milliseconds()))
	}()

	body, err := json.Marshal(p)
	if err != nil {
		metrics.RecordDeliveryError()
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		metrics.RecordDeliveryError()
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := d.client.Do(req)
	if err != nil {
		metrics.RecordDeliveryError()
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		metrics.RecordDeliveryError()
		return fmt.Errorf("%w: endpoint returned %d", ErrDeliveryFailed, resp.StatusCode)
	}

	return nil
}
