package rpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, handler func(method string, w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		handler(req.Method, w)
	}))
}

func TestClient_Status(t *testing.T) {
	srv := newTestServer(t, func(method string, w http.ResponseWriter) {
		if method != "status" {
			t.Fatalf("unexpected method %q", method)
		}
		json.NewEncoder(w).Encode(jsonRPCResponse{
			Result: json.RawMessage(`{"sync_info":{"latest_block_height":12345}}`),
		})
	})
	defer srv.Close()

	c := New(srv.URL, 0)
	height, err := c.Status(t.Context())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if height != 12345 {
		t.Errorf("expected height 12345, got %d", height)
	}
}

func TestClient_Block(t *testing.T) {
	srv := newTestServer(t, func(method string, w http.ResponseWriter) {
		json.NewEncoder(w).Encode(jsonRPCResponse{
			Result: json.RawMessage(`{
				"header": {
					"hash": "abc",
					"height": 10,
					"prev_hash": "parent",
					"timestamp_nanosec": 1500000000,
					"total_weight": {"num": 42}
				},
				"chunks": [{"shard_id": 0}],
				"transactions": [
					{"hash": "tx1", "signer_id": "alice.near", "body": {"Transfer": {"deposit": "100"}}}
				]
			}`),
		})
	})
	defer srv.Close()

	c := New(srv.URL, 0)
	block, err := c.Block(t.Context(), 10)
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if block.Hash != "abc" || block.Height != 10 || block.PrevHash != "parent" {
		t.Errorf("unexpected header: %+v", block)
	}
	if block.TimestampNanos != 1500000000 {
		t.Errorf("unexpected timestamp: %d", block.TimestampNanos)
	}
	if len(block.Transactions) != 1 || block.Transactions[0].Kind != "Transfer" {
		t.Errorf("unexpected transactions: %+v", block.Transactions)
	}
}

func TestClient_Block_Missing(t *testing.T) {
	srv := newTestServer(t, func(method string, w http.ResponseWriter) {
		resp := jsonRPCResponse{}
		resp.Error = &jsonRPCError{Name: "HANDLER_ERROR"}
		resp.Error.Cause.Name = "UNKNOWN_BLOCK"
		json.NewEncoder(w).Encode(resp)
	})
	defer srv.Close()

	c := New(srv.URL, 0)
	_, err := c.Block(t.Context(), 999)
	if _, ok := err.(*MissingBlockError); !ok {
		t.Fatalf("expected MissingBlockError, got %T: %v", err, err)
	}
}

func TestClient_Status_Transient(t *testing.T) {
	c := New("http://127.0.0.1:0", 0)
	_, err := c.Status(t.Context())
	if _, ok := err.(*TransientRpcError); !ok {
		t.Fatalf("expected TransientRpcError, got %T: %v", err, err)
	}
}
