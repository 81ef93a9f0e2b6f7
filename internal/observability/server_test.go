package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
)

func TestHandleHealthReturnsOKWhenAllChecksPass(t *testing.T) {
	s := NewServer(":0", map[string]Checker{
		"mongo": func(ctx context.Context) error { return nil },
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/healthz", nil)
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body healthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" || body.Checks["mongo"] != "ok" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestHandleHealthReturns503WhenACheckFails(t *testing.T) {
	s := NewServer(":0", map[string]Checker{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/healthz", nil)
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != 503 {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var body healthStatus
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Status != "degraded" || body.Checks["redis"] == "ok" {
		t.Fatalf("unexpected body: %+v", body)
	}
}
