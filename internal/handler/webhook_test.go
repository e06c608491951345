package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/sentinel/internal/core/breaker"
)

func testBreaker(name string) *breaker.Breaker {
	return breaker.New(name, breaker.Config{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		CallTimeout:      time.Second,
		ResetTimeout:     time.Minute,
	})
}

func TestWebhook_DeliversPayload(t *testing.T) {
	var body atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p map[string]string
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		body.Store(p["to"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, testBreaker("crm"))
	err := wh.Handle(context.Background(), json.RawMessage(`{"to":"lead-1"}`))
	if err != nil {
		t.Fatalf("delivery failed: %v", err)
	}
	if got, _ := body.Load().(string); got != "lead-1" {
		t.Errorf("payload not delivered, got %q", got)
	}
}

func TestWebhook_ErrorStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, testBreaker("crm"))
	if err := wh.Handle(context.Background(), nil); err == nil {
		t.Error("expected failure on 502")
	}
}

func TestWebhook_CircuitOpensOnRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b := testBreaker("messaging")
	wh := NewWebhook(srv.URL, b)

	for i := 0; i < 3; i++ {
		if err := wh.Handle(context.Background(), nil); err == nil {
			t.Fatalf("delivery %d unexpectedly succeeded", i+1)
		}
	}

	if got := b.Status().State; got != breaker.StateOpen {
		t.Fatalf("expected open circuit, got %s", got)
	}

	// Fail fast: the endpoint must not see the rejected call
	err := wh.Handle(context.Background(), nil)
	var openErr *breaker.CircuitOpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected CircuitOpenError, got %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("open circuit still reached the endpoint: %d hits", hits.Load())
	}
}
