package deliver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelbrown/flipwatch/internal/store"
)

func testAlert() store.Alert {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return store.Alert{
		ID:         "a1",
		Identity:   "alice",
		Kind:       "sentiment-shift",
		Severity:   "high",
		Stmt1Text:  "bitcoin to the moon, buy now",
		Stmt2Text:  "bitcoin is crashing, sell everything",
		DetectedAt: now,
		CreatedAt:  now,
	}
}

func TestWebhookSinkDelivers(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, 5*time.Second)
	if err := sink.Deliver(context.Background(), testAlert()); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if got.ID != "a1" || got.Identity != "alice" || got.Kind != "sentiment-shift" {
		t.Errorf("payload = %+v, want alert fields", got)
	}
}

func TestWebhookSinkRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, 5*time.Second)
	if err := sink.Deliver(context.Background(), testAlert()); err != nil {
		t.Fatalf("Deliver failed after retries: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("endpoint called %d times, want 3 (two failures + success)", n)
	}
}

func TestWebhookSinkClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, 5*time.Second)
	if err := sink.Deliver(context.Background(), testAlert()); err == nil {
		t.Fatal("expected error from 400 response")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("endpoint called %d times, want 1 (no retry on 4xx)", n)
	}
}

func TestLogSinkNeverFails(t *testing.T) {
	if err := (LogSink{}).Deliver(context.Background(), testAlert()); err != nil {
		t.Errorf("LogSink.Deliver = %v, want nil", err)
	}
}
