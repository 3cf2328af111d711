// Package bus defines the session the indexer needs from the WAMP-like
// message bus: registering the node-telemetry and select procedures.
// Session setup, authentication, and reconnect logic belong to the bus
// client library itself and are out of scope here — this package only
// specifies the interface the rest of the indexer calls through, plus a
// logging stub for running without a bus configured.
package bus

import (
	"context"
	"log/slog"
)

// TelemetryReport is the payload the HTTP telemetry endpoint forwards
// into the node-telemetry procedure.
type TelemetryReport struct {
	NodeID            string `json:"node_id"`
	AccountID         string `json:"account_id"`
	IPAddress         string `json:"ip_address"`
	LatestBlockHeight uint64 `json:"latest_block_height"`
}

// SelectQuery is the payload forwarded to the read-only SQL passthrough
// procedure.
type SelectQuery struct {
	Query        string `json:"query"`
	Replacements []any  `json:"replacements"`
}

// Session is the bus capability the rest of the indexer depends on.
type Session interface {
	// NodeTelemetry registers (or forwards to) the node-telemetry
	// procedure, upserting a Node row from report.
	NodeTelemetry(ctx context.Context, report TelemetryReport) error

	// Select runs a read-only parameterised SQL passthrough.
	Select(ctx context.Context, q SelectQuery) ([]map[string]any, error)

	// Close releases the session.
	Close() error
}

// LoggingSession is a Session that logs every call instead of talking to
// a real bus. It is the default when no WAMP_URL is configured.
type LoggingSession struct {
	log *slog.Logger
}

// NewLoggingSession creates a LoggingSession.
func NewLoggingSession(log *slog.Logger) *LoggingSession {
	if log == nil {
		log = slog.Default()
	}
	return &LoggingSession{log: log}
}

// NodeTelemetry logs report and returns nil, as if the upsert succeeded.
func (s *LoggingSession) NodeTelemetry(ctx context.Context, report TelemetryReport) error {
	s.log.Info("node-telemetry", "node_id", report.NodeID, "account_id", report.AccountID,
		"ip_address", report.IPAddress, "latest_block_height", report.LatestBlockHeight)
	return nil
}

// Select logs q and returns an empty result set.
func (s *LoggingSession) Select(ctx context.Context, q SelectQuery) ([]map[string]any, error) {
	s.log.Info("select", "query", q.Query, "replacements", q.Replacements)
	return nil, nil
}

// Close is a no-op.
func (s *LoggingSession) Close() error {
	return nil
}
