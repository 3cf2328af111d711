package domain

// Block is a persisted row of the chain's block table.
//
// Hash is the primary key. Height is unique and monotonic with chain
// position; re-storing a Block with a Hash that already exists is a
// no-op update (idempotent by key).
type Block struct {
	Hash            string
	Height          uint64
	PrevHash        string
	TimestampMs     uint64
	Weight          uint64
	AuthorID        string
	ListOfApprovals string
}

// UnknownAuthor is the placeholder used when the source RPC does not
// expose a block's author.
const UnknownAuthor = "n/a"

// TimestampMsFromNanos truncates a nanosecond source timestamp down to
// milliseconds, matching the source chain's reporting unit.
func TimestampMsFromNanos(nanos uint64) uint64 {
	return nanos / 1_000_000
}
