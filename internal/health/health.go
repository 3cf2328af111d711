// Package health exposes the indexer's pass state machine and
// Prometheus metrics over HTTP.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	syncengine "github.com/ryancwalsh/near-explorer/internal/sync"
)

// Report is the JSON body returned from /health.
type Report struct {
	Status string                           `json:"status"`
	Passes map[string]syncengine.PassState `json:"passes"`
}

// Server provides the /health and /metrics HTTP endpoints.
type Server struct {
	coordinator *syncengine.Coordinator
	server      *http.Server
}

// NewServer creates a Server reporting coordinator's pass states,
// listening on port.
func NewServer(coordinator *syncengine.Coordinator, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		coordinator: coordinator,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server; it blocks until Stop is called.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := Report{
		Status: "healthy",
		Passes: map[string]syncengine.PassState{
			syncengine.PassNewTip:     s.coordinator.State(syncengine.PassNewTip),
			syncengine.PassOldHistory: s.coordinator.State(syncengine.PassOldHistory),
			syncengine.PassGap:        s.coordinator.State(syncengine.PassGap),
		},
	}
	for _, state := range report.Passes {
		if state == syncengine.PassFailed {
			report.Status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
