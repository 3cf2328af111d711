package domain

// Transaction is a persisted row of the chain's transaction table.
//
// Kind is the single key of the RPC body's discriminator map; Args holds
// the payload associated with that key verbatim.
type Transaction struct {
	Hash        string
	Originator  string
	Destination string
	Kind        string
	Args        []byte // raw JSON payload associated with Kind
	ChunkHash   string
	Status      string
	Logs        string
}

// Placeholders matching fields the source RPC does not expose.
const (
	UnknownDestination = "n/a"
	StatusCompleted    = "Completed"
)
