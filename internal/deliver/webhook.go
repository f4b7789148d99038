package deliver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/abelbrown/flipwatch/internal/store"
)

// webhookMaxElapsed caps total retry time per alert so a dead endpoint
// cannot stall the sweep's delivery phase.
const webhookMaxElapsed = 30 * time.Second

// WebhookSink POSTs each alert as JSON to a configured endpoint.
// Transient failures are retried with exponential backoff.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a WebhookSink for the given endpoint URL.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// webhookPayload is the wire shape posted to the endpoint.
type webhookPayload struct {
	ID         string    `json:"id"`
	Identity   string    `json:"identity"`
	Kind       string    `json:"kind"`
	Topic      string    `json:"topic,omitempty"`
	Severity   string    `json:"severity"`
	Stmt1Text  string    `json:"statement_a"`
	Stmt2Text  string    `json:"statement_b"`
	DetectedAt time.Time `json:"detected_at"`
}

// Deliver implements Sink. 4xx responses are permanent failures; network
// errors and 5xx responses are retried until webhookMaxElapsed.
func (w *WebhookSink) Deliver(ctx context.Context, a store.Alert) error {
	body, err := json.Marshal(webhookPayload{
		ID:         a.ID,
		Identity:   a.Identity,
		Kind:       a.Kind,
		Topic:      a.Topic,
		Severity:   a.Severity,
		Stmt1Text:  a.Stmt1Text,
		Stmt2Text:  a.Stmt2Text,
		DetectedAt: a.DetectedAt,
	})
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = webhookMaxElapsed

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return backoff.Permanent(fmt.Errorf("webhook rejected alert: HTTP %d", resp.StatusCode))
		default:
			return fmt.Errorf("webhook error: HTTP %d", resp.StatusCode)
		}
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("deliver alert %s: %w", a.ID, err)
	}
	return nil
}
