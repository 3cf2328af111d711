package bus

import (
	"testing"

	"github.com/ryancwalsh/near-explorer/internal/infra/storage/memory"
)

func TestStoreSession_NodeTelemetry(t *testing.T) {
	nodes := memory.NewNodeStore()
	s := NewStoreSession(nodes)

	err := s.NodeTelemetry(t.Context(), TelemetryReport{
		NodeID:            "node-1",
		AccountID:         "alice.near",
		IPAddress:         "203.0.113.5",
		LatestBlockHeight: 42,
	})
	if err != nil {
		t.Fatalf("NodeTelemetry: %v", err)
	}

	n, ok := nodes.Get("node-1")
	if !ok {
		t.Fatalf("expected node-1 to be stored")
	}
	if n.AccountID != "alice.near" || n.LastHeight != 42 {
		t.Errorf("unexpected stored node: %+v", n)
	}
}

func TestStoreSession_SelectNotImplemented(t *testing.T) {
	s := NewStoreSession(memory.NewNodeStore())
	if _, err := s.Select(t.Context(), SelectQuery{Query: "select 1"}); err == nil {
		t.Fatalf("expected Select to be refused")
	}
}
