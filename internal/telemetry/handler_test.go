package telemetry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ryancwalsh/near-explorer/internal/infra/bus"
	"github.com/ryancwalsh/near-explorer/internal/infra/storage/memory"
)

func TestHandler_ForwardsAndUpserts(t *testing.T) {
	nodes := memory.NewNodeStore()
	h := NewHandler(bus.NewStoreSession(nodes), nil)

	body := strings.NewReader(`{"node_id":"node-1","account_id":"alice.near","latest_block_height":10}`)
	req := httptest.NewRequest(http.MethodPost, "/telemetry", body)
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	n, ok := nodes.Get("node-1")
	if !ok {
		t.Fatalf("expected node-1 to be upserted")
	}
	if n.IPAddress != "203.0.113.5" {
		t.Errorf("expected first X-Forwarded-For entry, got %q", n.IPAddress)
	}
}

func TestHandler_DebugReturnsTiming(t *testing.T) {
	h := NewHandler(bus.NewStoreSession(memory.NewNodeStore()), nil)

	body := strings.NewReader(`{"node_id":"node-2"}`)
	req := httptest.NewRequest(http.MethodPost, "/telemetry?debug=1", body)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := resp["forward_duration"]; !ok {
		t.Errorf("expected forward_duration in debug response, got %v", resp)
	}
}

func TestHandler_FallsBackToPeerAddress(t *testing.T) {
	nodes := memory.NewNodeStore()
	h := NewHandler(bus.NewStoreSession(nodes), nil)

	body := strings.NewReader(`{"node_id":"node-3"}`)
	req := httptest.NewRequest(http.MethodPost, "/telemetry", body)
	req.RemoteAddr = "198.51.100.9:54321"
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	n, ok := nodes.Get("node-3")
	if !ok {
		t.Fatalf("expected node-3 to be upserted")
	}
	if n.IPAddress != "198.51.100.9" {
		t.Errorf("expected TCP peer address, got %q", n.IPAddress)
	}
}
