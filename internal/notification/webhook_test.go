package notification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"alert-systemv1/internal/logger"
	"alert-systemv1/internal/model"
)

func TestWebhookSend(t *testing.T) {
	var gotType string
	var got model.Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &got)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL)
	if ch.Name() != "webhook" {
		t.Fatalf("name = %s", ch.Name())
	}
	if err := ch.Send(context.Background(), testAlert()); err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotType != "application/json" {
		t.Errorf("content type = %s", gotType)
	}
	if got.Symbol != "RELIANCE" || got.Grade != model.GradeAPlus || got.Action != model.ActionBuyCE {
		t.Errorf("payload = %+v", got)
	}
	if len(got.Rationale) != 4 {
		t.Errorf("rationale entries = %d, want 4", len(got.Rationale))
	}
}

func TestWebhookPropagatesTraceID(t *testing.T) {
	var gotTrace string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = r.Header.Get("X-Trace-Id")
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL)
	ctx := logger.WithTraceID(context.Background(), "RELIANCE-1700000000000000000")
	if err := ch.Send(ctx, testAlert()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotTrace != "RELIANCE-1700000000000000000" {
		t.Errorf("trace header = %q", gotTrace)
	}

	gotTrace = "unset"
	if err := ch.Send(context.Background(), testAlert()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotTrace != "" {
		t.Errorf("trace header without ctx id = %q, want empty", gotTrace)
	}
}

func TestWebhookSendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	ch := NewWebhookChannel(srv.URL)
	if err := ch.Send(context.Background(), testAlert()); err == nil {
		t.Error("want error on 500 response")
	}

	srv.Close()
	if err := ch.Send(context.Background(), testAlert()); err == nil {
		t.Error("want error when the endpoint is unreachable")
	}
}
