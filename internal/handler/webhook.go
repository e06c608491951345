package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vietddude/sentinel/internal/core/breaker"
)

// Webhook delivers task payloads to an HTTP endpoint as JSON POSTs, with
// every outbound call wrapped in a circuit breaker keyed by the dependency
// name. When the circuit is open the delivery fails fast and the queue's
// backoff takes over.
type Webhook struct {
	url        string
	httpClient *http.Client
	breaker    *breaker.Breaker
}

// NewWebhook creates a webhook delivery handler. The breaker's call
// timeout bounds each request, so the client itself carries no timeout.
func NewWebhook(url string, b *breaker.Breaker) *Webhook {
	return &Webhook{
		url: url,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		breaker: b,
	}
}

// Handle implements queue.Handler.
func (w *Webhook) Handle(ctx context.Context, payload json.RawMessage) error {
	return w.breaker.Call(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("webhook request failed: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		if resp.StatusCode >= http.StatusMultipleChoices {
			return fmt.Errorf("webhook returned %s", resp.Status)
		}
		return nil
	})
}
