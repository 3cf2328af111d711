// Package rpc implements a typed JSON-RPC client for the chain node.
//
// It exposes exactly the two operations the synchronization engine
// needs: Status (the current tip) and Block (one block by height). It
// never retries internally; a failed call is classified and returned
// to the caller, who decides whether and when to try again.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ryancwalsh/near-explorer/internal/core/domain"
)

// Client talks to a single chain node over JSON-RPC/HTTPS.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a Client bound to the given node URL.
func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Status returns the chain's current tip height.
func (c *Client) Status(ctx context.Context) (uint64, error) {
	var res statusResult
	if err := c.call(ctx, "status", []any{}, &res); err != nil {
		return 0, err
	}
	return res.SyncInfo.LatestBlockHeight, nil
}

// Block fetches one block by height, together with its single embedded
// chunk and that chunk's transactions.
func (c *Client) Block(ctx context.Context, height uint64) (*domain.BlockInfo, error) {
	var res blockResult
	err := c.call(ctx, "block", blockParams{BlockID: height}, &res)
	if err != nil {
		if isUnknownBlock(err) {
			return nil, &MissingBlockError{Height: height}
		}
		return nil, err
	}

	info := &domain.BlockInfo{
		Hash:           res.Header.Hash,
		Height:         res.Header.Height,
		PrevHash:       res.Header.PrevHash,
		TimestampNanos: res.Header.TimestampNs,
		Weight:         res.Header.TotalWeight.Num,
		AuthorID:       domain.UnknownAuthor,
	}
	if len(res.Chunks) > 0 {
		info.ShardID = fmt.Sprintf("%d", res.Chunks[0].ShardID)
	}

	info.Transactions = make([]domain.TransactionInfo, 0, len(res.Transactions))
	for _, tx := range res.Transactions {
		kind, args, err := decodeBody(tx.Body)
		if err != nil {
			// A transaction we can't decode still counts as a fetch
			// failure for the whole height: better to retry than to
			// persist a block missing part of its transaction set.
			return nil, &TransientRpcError{Op: "block.decodeBody", Err: err}
		}
		info.Transactions = append(info.Transactions, domain.TransactionInfo{
			Hash:       tx.Hash,
			Originator: tx.SignerID,
			Kind:       kind,
			Args:       args,
		})
	}

	return info, nil
}

// call issues a single JSON-RPC request and decodes its result into out.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	reqBody, err := json.Marshal(jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return &TransientRpcError{Op: method, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return &TransientRpcError{Op: method, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientRpcError{Op: method, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientRpcError{Op: method, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &TransientRpcError{Op: method, Err: fmt.Errorf("http %d: %s", resp.StatusCode, body)}
	}

	var rpcResp jsonRPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return &TransientRpcError{Op: method, Err: err}
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return &TransientRpcError{Op: method, Err: err}
		}
	}
	return nil
}

func decodeBody(raw json.RawMessage) (kind string, args []byte, err error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", nil, err
	}
	for k, v := range body {
		return k, v, nil
	}
	return "", nil, fmt.Errorf("transaction body has no discriminator key")
}

// isUnknownBlock reports whether err is the node's own signal that a
// height is absent or skipped, as opposed to a transport failure.
func isUnknownBlock(err error) bool {
	rpcErr, ok := err.(*jsonRPCError)
	if !ok {
		return false
	}
	return rpcErr.Cause.Name == "UNKNOWN_BLOCK"
}
