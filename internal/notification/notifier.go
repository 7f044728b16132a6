// Package notification delivers graded alerts to external channels:
// Telegram, generic webhooks, and the WebSocket feed hub.
package notification

import (
	"context"
	"log"

	"alert-systemv1/internal/model"
)

// Channel is one alert delivery backend. Send returns an error only
// when delivery failed; the dispatcher owns retries and bookkeeping.
type Channel interface {
	Name() string
	Send(ctx context.Context, a *model.Alert) error
}

// LogChannel prints alerts to the process log. Used in development and
// as the fallback when no real channel is enabled.
type LogChannel struct{}

func NewLogChannel() *LogChannel { return &LogChannel{} }

func (n *LogChannel) Name() string { return "log" }

func (n *LogChannel) Send(ctx context.Context, a *model.Alert) error {
	log.Printf("[notify] %s %s %s conf=%.0f action=%s", a.Grade, a.Symbol, a.OICategory, a.Confidence, a.Action)
	return nil
}
