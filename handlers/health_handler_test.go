package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/wa-pairing-service/internal/connection"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func runHealth(t *testing.T, h *HealthHandler) (int, map[string]any) {
	t.Helper()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	if err := h.Health(c); err != nil {
		t.Fatalf("Health returned error: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return rec.Code, body
}

func TestHealth_AllUp(t *testing.T) {
	conn := &fakeConnection{status: connection.Status{Ready: true}}
	code, body := runHealth(t, NewHealthHandler(&fakePinger{}, &fakePinger{}, "redis", conn))

	if code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("expected 200 ok, got %d %v", code, body["status"])
	}
}

func TestHealth_CacheDownIsDegraded(t *testing.T) {
	conn := &fakeConnection{status: connection.Status{Ready: true}}
	code, body := runHealth(t, NewHealthHandler(nil, &fakePinger{err: errors.New("refused")}, "redis", conn))

	if code != http.StatusOK || body["status"] != "degraded" {
		t.Fatalf("expected 200 degraded, got %d %v", code, body["status"])
	}
	components := body["components"].(map[string]any)
	if components["database"].(map[string]any)["status"] != "disabled" {
		t.Errorf("expected database disabled, got %v", components["database"])
	}
}

func TestHealth_ConnectionNotReadyIsDown(t *testing.T) {
	code, body := runHealth(t, NewHealthHandler(&fakePinger{}, nil, "", &fakeConnection{}))

	if code != http.StatusServiceUnavailable || body["status"] != "down" {
		t.Fatalf("expected 503 down, got %d %v", code, body["status"])
	}
}
