package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/jmoralesv/agrobook/internal/adapter/session"
	"github.com/jmoralesv/agrobook/internal/adapter/storage"
	"github.com/jmoralesv/agrobook/internal/core/service"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	adapter := storage.NewSQLiteAdapter(db)
	if err := adapter.CreateSchema(t.Context()); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	ledger := service.NewLedgerService(adapter)
	sessions := session.NewManager(session.DefaultTTL, session.DefaultMaxContextChars)
	messages := service.NewMessageService(ledger, sessions, nil)

	mux := http.NewServeMux()
	NewHTTPHandler(ledger, messages).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func TestCreateEntry_Success(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/api/entries", map[string]any{
		"actor": "ana", "kind": "purchase", "product": "maíz",
		"quantity": 10, "unit": "kg", "unit_price": 5,
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", resp.StatusCode, body)
	}
	if body["success"] != true || body["id"] == "" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestCreateEntry_MissingFields(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/api/entries", map[string]any{
		"actor": "ana", "kind": "purchase",
	})

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateEntry_InsufficientStockReportsID(t *testing.T) {
	srv := newTestServer(t)

	if resp, _ := postJSON(t, srv.URL+"/api/entries", map[string]any{
		"actor": "ana", "kind": "purchase", "product": "maíz",
		"quantity": 10, "unit": "kg", "unit_price": 5,
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("seed purchase failed: %d", resp.StatusCode)
	}

	resp, body := postJSON(t, srv.URL+"/api/entries", map[string]any{
		"actor": "ana", "kind": "sale", "product": "maíz",
		"quantity": 2000, "unit": "kg", "unit_price": 5,
	})

	if resp.StatusCode != http.StatusGone {
		t.Errorf("expected 410, got %d", resp.StatusCode)
	}
	if id, _ := body["id"].(string); id == "" {
		t.Error("expected id of the committed ledger row")
	}
}

func TestModifyEntry_WrongActor(t *testing.T) {
	srv := newTestServer(t)

	_, created := postJSON(t, srv.URL+"/api/entries", map[string]any{
		"actor": "ana", "kind": "purchase", "product": "maíz",
		"quantity": 10, "unit": "kg", "unit_price": 5,
	})
	id := created["id"].(string)

	raw, _ := json.Marshal(map[string]any{"actor": "benito", "quantity": 99})
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/entries/"+id, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}
}

func TestDeleteEntry_NotFound(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/entries/missing?actor=ana", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHistoryAndInventoryAndProfit(t *testing.T) {
	srv := newTestServer(t)

	postJSON(t, srv.URL+"/api/entries", map[string]any{
		"actor": "ana", "kind": "purchase", "product": "maíz",
		"quantity": 100, "unit": "kg", "unit_price": 2,
	})
	postJSON(t, srv.URL+"/api/entries", map[string]any{
		"actor": "ana", "kind": "sale", "product": "maíz",
		"quantity": 50, "unit": "kg", "unit_price": 5,
	})

	resp, err := http.Get(srv.URL + "/api/history?actor=ana")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	var history []map[string]any
	json.NewDecoder(resp.Body).Decode(&history)
	resp.Body.Close()
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}

	resp, err = http.Get(srv.URL + "/api/inventory")
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	var inventory []map[string]any
	json.NewDecoder(resp.Body).Decode(&inventory)
	resp.Body.Close()
	if len(inventory) != 1 || inventory[0]["quantity"] != "50" {
		t.Fatalf("unexpected inventory: %v", inventory)
	}

	resp, err = http.Get(srv.URL + "/api/profit?actor=ana")
	if err != nil {
		t.Fatalf("get profit: %v", err)
	}
	var profit map[string]string
	json.NewDecoder(resp.Body).Decode(&profit)
	resp.Body.Close()
	if profit["sales"] != "250" || profit["purchases"] != "200" || profit["net"] != "50" {
		t.Errorf("unexpected profit: %v", profit)
	}
}

func TestProcessActions_DuplicateWithinBatch(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/actions", "application/json", bytes.NewReader([]byte(`{
		"actor": "ana",
		"actions": [
			{"kind":"purchase","product":"maíz","quantity":10,"unit":"kg","unit_price":5,"action_id":"a-1"},
			{"kind":"purchase","product":"maíz","quantity":10,"unit":"kg","unit_price":5,"action_id":"a-1"}
		]
	}`)))
	if err != nil {
		t.Fatalf("post actions: %v", err)
	}
	defer resp.Body.Close()

	var results []map[string]any
	json.NewDecoder(resp.Body).Decode(&results)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0]["status"] != "applied" || results[1]["status"] != "duplicate" {
		t.Errorf("unexpected statuses: %v", results)
	}
}

func TestHandleMessage_ExtractorUnavailable(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/api/message", map[string]any{
		"actor": "ana", "name": "Ana", "message": "vendí 10 kilos de maíz",
	})

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
