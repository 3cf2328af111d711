// Package telemetry implements the HTTP endpoint validators POST their
// node-telemetry reports to. It is glue over the message bus: decode,
// stamp the client IP, forward, respond.
package telemetry

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ryancwalsh/near-explorer/internal/infra/bus"
	"github.com/ryancwalsh/near-explorer/internal/sync/metrics"
)

// Handler forwards decoded telemetry reports to a bus.Session.
type Handler struct {
	session bus.Session
	log     *slog.Logger
}

// NewHandler creates a Handler that forwards through session.
func NewHandler(session bus.Session, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{session: session, log: log}
}

// incomingReport is the JSON body a validator posts. It omits the
// client IP, which the handler fills in from the connection itself.
type incomingReport struct {
	NodeID            string `json:"node_id"`
	AccountID         string `json:"account_id"`
	LatestBlockHeight uint64 `json:"latest_block_height"`
}

// ServeHTTP decodes the POST body, augments it with the caller's IP,
// forwards it through the bus session, and replies with {} — or, when
// the request carries a `debug` query parameter, the forward's timing.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var in incomingReport
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	report := bus.TelemetryReport{
		NodeID:            in.NodeID,
		AccountID:         in.AccountID,
		IPAddress:         clientIP(r),
		LatestBlockHeight: in.LatestBlockHeight,
	}

	start := time.Now()
	err := h.session.NodeTelemetry(r.Context(), report)
	elapsed := time.Since(start)
	if err != nil {
		h.log.Warn("node-telemetry forward failed", "node_id", report.NodeID, "error", err)
		http.Error(w, "forward failed", http.StatusBadGateway)
		return
	}
	metrics.TelemetryReportsTotal.Inc()

	w.Header().Set("Content-Type", "application/json")
	if _, debug := r.URL.Query()["debug"]; debug {
		json.NewEncoder(w).Encode(map[string]string{"forward_duration": elapsed.String()})
		return
	}
	w.Write([]byte("{}"))
}

// clientIP takes the first of X-Forwarded-For, the TCP peer address, or
// the socket address. X-Forwarded-For is a comma-separated list; only
// its first entry (the original client) is used.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
