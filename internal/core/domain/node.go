package domain

// Node is a validator's last-reported telemetry snapshot, upserted on
// every report the message bus forwards from the HTTP telemetry
// endpoint. NodeID is the primary key.
type Node struct {
	NodeID     string
	Moniker    string
	AccountID  string
	IPAddress  string
	LastSeenMs uint64
	LastHeight uint64
}
