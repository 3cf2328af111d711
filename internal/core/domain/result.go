package domain

// FetchResult wraps the outcome of one height's block fetch so a single
// RPC failure can flow through the pipeline as a value instead of
// unwinding the batch it belongs to.
type FetchResult struct {
	Height uint64
	Block  *BlockInfo
	Err    error
}

// Ok reports whether the fetch succeeded.
func (r FetchResult) Ok() bool {
	return r.Err == nil
}

// BlockInfo is the RPC client's decoded view of one chain block: its
// header, the chunk it references, and the transactions embedded in
// that chunk.
type BlockInfo struct {
	Hash           string
	Height         uint64
	PrevHash       string
	TimestampNanos uint64
	Weight         uint64
	AuthorID       string
	ShardID        string
	Transactions   []TransactionInfo
}

// TransactionInfo is one transaction as reported by the block RPC call,
// prior to being mapped onto the persisted Transaction shape.
type TransactionInfo struct {
	Hash       string
	Originator string
	Kind       string
	Args       []byte
}
