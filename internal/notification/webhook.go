package notification

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"alert-systemv1/internal/logger"
	"alert-systemv1/internal/model"
)

// WebhookChannel POSTs the alert JSON to a generic HTTP endpoint.
type WebhookChannel struct {
	url    string
	client *http.Client
}

// NewWebhookChannel creates a webhook channel for the given endpoint.
func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *WebhookChannel) Name() string { return "webhook" }

func (w *WebhookChannel) Send(ctx context.Context, a *model.Alert) error {
	req, err := http.NewRequestWithContext(ctx, "POST", w.url, bytes.NewReader(a.JSON()))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tid := logger.TraceID(ctx); tid != "" {
		req.Header.Set("X-Trace-Id", tid)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}

	log.Printf("[webhook] sent %s %s alert", a.Grade, a.Symbol)
	return nil
}
