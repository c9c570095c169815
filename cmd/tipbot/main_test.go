package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	apphttp "github.com/montip/tipbot-middleware/pkg/app/http"
	"github.com/montip/tipbot-middleware/pkg/tipdb"
)

// MockTipReader is a mock implementation of tipReader
type MockTipReader struct {
	ListAuditFunc      func(ctx context.Context, limit int) ([]*tipdb.AuditRecord, error)
	GetTransactionFunc func(ctx context.Context, eventID string) (*tipdb.TransactionRecord, error)
}

func (m *MockTipReader) ListAudit(ctx context.Context, limit int) ([]*tipdb.AuditRecord, error) {
	if m.ListAuditFunc != nil {
		return m.ListAuditFunc(ctx, limit)
	}
	return nil, nil
}

func (m *MockTipReader) GetTransaction(ctx context.Context, eventID string) (*tipdb.TransactionRecord, error) {
	if m.GetTransactionFunc != nil {
		return m.GetTransactionFunc(ctx, eventID)
	}
	return nil, nil
}

func newTipsRouter(store tipReader) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/tips", apphttp.HandleError(handleListTips(store)))
	r.Get("/api/v1/tips/{eventID}", apphttp.HandleError(handleGetTip(store)))
	return r
}

func TestHandleGetTip(t *testing.T) {
	store := &MockTipReader{
		GetTransactionFunc: func(ctx context.Context, eventID string) (*tipdb.TransactionRecord, error) {
			if eventID == "0xevent" {
				return &tipdb.TransactionRecord{EventID: "0xevent", Status: tipdb.StatusConfirmed, TxHash: "0xhash"}, nil
			}
			return nil, nil
		},
	}
	router := newTipsRouter(store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tips/0xevent", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var record tipdb.TransactionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if record.EventID != "0xevent" || record.TxHash != "0xhash" {
		t.Errorf("record = %+v", record)
	}
}

func TestHandleGetTip_NotFound(t *testing.T) {
	router := newTipsRouter(&MockTipReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tips/0xunknown", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if body.Error != "tip not found" || body.Code != http.StatusNotFound {
		t.Errorf("body = %+v, want tip not found / 404", body)
	}
}

func TestHandleGetTip_StoreFailure(t *testing.T) {
	store := &MockTipReader{
		GetTransactionFunc: func(ctx context.Context, eventID string) (*tipdb.TransactionRecord, error) {
			return nil, errors.New("connection reset")
		},
	}
	router := newTipsRouter(store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tips/0xevent", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestHandleListTips(t *testing.T) {
	store := &MockTipReader{
		ListAuditFunc: func(ctx context.Context, limit int) ([]*tipdb.AuditRecord, error) {
			return []*tipdb.AuditRecord{
				{EventID: "0xa", Status: "confirmed"},
				{EventID: "0xb", Status: "failed"},
			}, nil
		},
	}
	router := newTipsRouter(store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tips", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Tips []*tipdb.AuditRecord `json:"tips"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Tips) != 2 || body.Tips[0].EventID != "0xa" {
		t.Errorf("tips = %+v, want both audit rows", body.Tips)
	}
}
