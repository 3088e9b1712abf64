package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/wa-pairing-service/internal/connection"
	"github.com/onurcolak/wa-pairing-service/internal/domain"
	"github.com/onurcolak/wa-pairing-service/pkg/response"
	validatorpkg "github.com/onurcolak/wa-pairing-service/pkg/validator"
)

type fakePairingService struct {
	batch *domain.CodeBatch
	err   error

	records    []domain.BatchRecord
	total      int64
	stats      domain.BatchStats
	queueDepth int

	gotPhone    string
	gotCount    int
	gotPage     int
	gotPageSize int
	called      bool
}

func (f *fakePairingService) RequestCodes(ctx context.Context, rawPhone string, count int) (*domain.CodeBatch, error) {
	f.called = true
	f.gotPhone = rawPhone
	f.gotCount = count
	return f.batch, f.err
}

func (f *fakePairingService) GetBatches(ctx context.Context, phone string, page, pageSize int) ([]domain.BatchRecord, int64, error) {
	f.gotPhone = phone
	f.gotPage = page
	f.gotPageSize = pageSize
	return f.records, f.total, f.err
}

func (f *fakePairingService) GetStats(ctx context.Context) (domain.BatchStats, error) {
	return f.stats, f.err
}

func (f *fakePairingService) GetLatestBatch(ctx context.Context, rawPhone string) (*domain.CodeBatch, error) {
	f.gotPhone = rawPhone
	return f.batch, f.err
}

func (f *fakePairingService) QueueDepth() int {
	return f.queueDepth
}

type fakeConnection struct {
	status connection.Status

	qr        string
	qrOK      bool
	resetErr  error
	resets    int
	reconnect int
}

func (f *fakeConnection) Status() connection.Status { return f.status }
func (f *fakeConnection) IsReady() bool             { return f.status.Ready }
func (f *fakeConnection) Reset(ctx context.Context) { f.reconnect++ }
func (f *fakeConnection) ResetSession(ctx context.Context) error {
	f.resets++
	return f.resetErr
}
func (f *fakeConnection) LoginQR(now time.Time) (string, bool) { return f.qr, f.qrOK }

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validatorpkg.New()
	return e
}

func postJSON(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestGenerateCodes_Success(t *testing.T) {
	e := newTestEcho()
	svc := &fakePairingService{
		batch: &domain.CodeBatch{
			RunID:           "run-1",
			Phone:           "15551234567",
			Count:           3,
			Codes:           []string{"ABCD-1234", "EFGH-5678", "IJKL-9012"},
			StorageLocation: "data/codes/codes_15551234567_20260304T101112_run-1.json",
		},
	}
	handler := NewPairingHandler(svc, &fakeConnection{})

	c, rec := postJSON(e, "/api/v1/pairing/codes", `{"phone": "+1 555 123 4567", "count": 3}`)
	if err := handler.GenerateCodes(c); err != nil {
		t.Fatalf("GenerateCodes returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotPhone != "+1 555 123 4567" || svc.gotCount != 3 {
		t.Errorf("unexpected service call: phone=%q count=%d", svc.gotPhone, svc.gotCount)
	}

	var body struct {
		Success bool             `json:"success"`
		Data    domain.CodeBatch `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !body.Success {
		t.Error("expected Success=true")
	}
	if len(body.Data.Codes) != 3 || body.Data.Codes[0] != "ABCD-1234" {
		t.Errorf("unexpected codes: %v", body.Data.Codes)
	}
	if body.Data.StorageLocation == "" {
		t.Error("expected storageLocation in response")
	}
}

func TestGenerateCodes_BadJSON(t *testing.T) {
	e := newTestEcho()
	svc := &fakePairingService{}
	handler := NewPairingHandler(svc, &fakeConnection{})

	c, rec := postJSON(e, "/api/v1/pairing/codes", `{"phone": "1555`)
	if err := handler.GenerateCodes(c); err != nil {
		t.Fatalf("GenerateCodes returned error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if svc.called {
		t.Error("service should not be called for malformed JSON")
	}
}

func TestGenerateCodes_ValidationFailure(t *testing.T) {
	e := newTestEcho()
	svc := &fakePairingService{}
	handler := NewPairingHandler(svc, &fakeConnection{})

	c, rec := postJSON(e, "/api/v1/pairing/codes", `{"phone": "call me", "count": 2}`)
	if err := handler.GenerateCodes(c); err != nil {
		t.Fatalf("GenerateCodes returned error: %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}

	var body validatorpkg.ValidationErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if _, ok := body.Details["phone"]; !ok {
		t.Errorf("expected phone in validation details, got %v", body.Details)
	}
	if svc.called {
		t.Error("service should not be called when validation fails")
	}
}

func TestGenerateCodes_MapsServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"short phone", fmt.Errorf("%w: too short", domain.ErrInvalidPhone), http.StatusBadRequest},
		{"not allowed", domain.ErrPhoneNotAllowed, http.StatusForbidden},
		{"not ready", domain.ErrNotReady, http.StatusServiceUnavailable},
		{"connection lost", domain.ErrConnectionLost, http.StatusServiceUnavailable},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"expired", domain.ErrExpired, http.StatusRequestTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			handler := NewPairingHandler(&fakePairingService{err: tt.err}, &fakeConnection{})

			c, rec := postJSON(e, "/api/v1/pairing/codes", `{"phone": "1555", "count": 1}`)
			if err := handler.GenerateCodes(c); err != nil {
				t.Fatalf("GenerateCodes returned error: %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rec.Code)
			}

			var body response.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if body.Success || body.Error == "" {
				t.Errorf("unexpected error body: %+v", body)
			}
		})
	}
}

func TestGenerateCodes_PersistFailureStillReturnsCodes(t *testing.T) {
	e := newTestEcho()
	svc := &fakePairingService{
		batch: &domain.CodeBatch{
			Phone:        "15551234567",
			Count:        1,
			Codes:        []string{"ABCD-1234"},
			PersistError: "failed to persist batch: disk full",
		},
	}
	handler := NewPairingHandler(svc, &fakeConnection{})

	c, rec := postJSON(e, "/api/v1/pairing/codes", `{"phone": "15551234567", "count": 1}`)
	if err := handler.GenerateCodes(c); err != nil {
		t.Fatalf("GenerateCodes returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "persistError") {
		t.Errorf("expected persistError in response body: %s", rec.Body.String())
	}
}

func TestGetStatus_ReportsReadinessAndQueueDepth(t *testing.T) {
	e := newTestEcho()
	conn := &fakeConnection{status: connection.Status{State: domain.StateOpen, Ready: true}}
	handler := NewPairingHandler(&fakePairingService{queueDepth: 4}, conn)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/pairing/status", nil), rec)
	if err := handler.GetStatus(c); err != nil {
		t.Fatalf("GetStatus returned error: %v", err)
	}

	var body struct {
		Data PairingStatus `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !body.Data.Ready || body.Data.QueueDepth != 4 || body.Data.State != "open" {
		t.Errorf("unexpected status: %+v", body.Data)
	}
}

func TestGetBatches_PassesPaginationAndFilter(t *testing.T) {
	e := newTestEcho()
	svc := &fakePairingService{
		records: []domain.BatchRecord{{ID: 1, Phone: "15551234567"}},
		total:   41,
	}
	handler := NewPairingHandler(svc, &fakeConnection{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/pairing/batches?page=2&pageSize=20&phone=15551234567", nil)
	c := e.NewContext(req, rec)
	if err := handler.GetBatches(c); err != nil {
		t.Fatalf("GetBatches returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if svc.gotPage != 2 || svc.gotPageSize != 20 || svc.gotPhone != "15551234567" {
		t.Errorf("unexpected call: page=%d pageSize=%d phone=%q", svc.gotPage, svc.gotPageSize, svc.gotPhone)
	}

	var body response.PaginatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body.TotalPages != 3 {
		t.Errorf("expected TotalPages=3, got %d", body.TotalPages)
	}
}

func TestGetBatches_InvalidPageSize(t *testing.T) {
	e := newTestEcho()
	handler := NewPairingHandler(&fakePairingService{}, &fakeConnection{})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/pairing/batches?pageSize=500", nil), rec)
	if err := handler.GetBatches(c); err != nil {
		t.Fatalf("GetBatches returned error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestGetLatestBatch_NotFound(t *testing.T) {
	e := newTestEcho()
	svc := &fakePairingService{err: fmt.Errorf("%w for 15551234567", domain.ErrBatchNotFound)}
	handler := NewPairingHandler(svc, &fakeConnection{})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetPath("/api/v1/pairing/batches/latest/:phone")
	c.SetParamNames("phone")
	c.SetParamValues("15551234567")

	if err := handler.GetLatestBatch(c); err != nil {
		t.Fatalf("GetLatestBatch returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if svc.gotPhone != "15551234567" {
		t.Errorf("expected phone path param to reach service, got %q", svc.gotPhone)
	}
}
