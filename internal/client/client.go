// Package client is a typed HTTP client for the token API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/metaconcert/meco/config"
	"github.com/metaconcert/meco/internal/protocol"
)

// NewHTTPClient creates the HTTP client used to reach a token server.
func NewHTTPClient(cfg config.NetworkConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Transport: http.DefaultTransport,
		Timeout:   timeout,
	}
}

// APIError is a call the server answered with a non-2xx status.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

type Client struct {
	base string
	http *http.Client
}

func New(cfg config.NetworkConfig) *Client {
	return NewWithHTTPClient(cfg.ServerURL, NewHTTPClient(cfg))
}

func NewWithHTTPClient(base string, httpClient *http.Client) *Client {
	return &Client{base: strings.TrimRight(base, "/"), http: httpClient}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var tx protocol.TxResponse
		if json.Unmarshal(data, &tx) == nil && tx.Error != "" {
			apiErr.Code, apiErr.Message = tx.Code, tx.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body any) (*protocol.TxResponse, error) {
	var resp protocol.TxResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

func (c *Client) Info(ctx context.Context) (*protocol.InfoResponse, error) {
	var out protocol.InfoResponse
	if err := c.get(ctx, "/info", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Balance(ctx context.Context, addr common.Address) (*protocol.BalanceResponse, error) {
	var out protocol.BalanceResponse
	if err := c.get(ctx, "/balance/"+addr.Hex(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Allowance(ctx context.Context, owner, spender common.Address) (*protocol.AllowanceResponse, error) {
	var out protocol.AllowanceResponse
	if err := c.get(ctx, "/allowance/"+owner.Hex()+"/"+spender.Hex(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Transfer(ctx context.Context, caller, to common.Address, amount *uint256.Int) (*protocol.TxResponse, error) {
	return c.post(ctx, "/transfer", protocol.TransferRequest{Caller: caller, To: to, Amount: amount.Dec()})
}

func (c *Client) Approve(ctx context.Context, caller, spender common.Address, amount *uint256.Int) (*protocol.TxResponse, error) {
	return c.post(ctx, "/approve", protocol.ApproveRequest{Caller: caller, Spender: spender, Amount: amount.Dec()})
}

func (c *Client) Mint(ctx context.Context, caller, to common.Address, amount *uint256.Int) (*protocol.TxResponse, error) {
	return c.post(ctx, "/mint", protocol.MintRequest{Caller: caller, To: to, Amount: amount.Dec()})
}

func (c *Client) Burn(ctx context.Context, caller common.Address, amount *uint256.Int) (*protocol.TxResponse, error) {
	return c.post(ctx, "/burn", protocol.BurnRequest{Caller: caller, Amount: amount.Dec()})
}

func (c *Client) Lock(ctx context.Context, caller, holder common.Address, amount *uint256.Int, due uint64) (*protocol.TxResponse, error) {
	return c.post(ctx, "/lock", protocol.LockRequest{Caller: caller, Holder: holder, Amount: amount.Dec(), Due: due})
}

func (c *Client) TransferWithLockUp(ctx context.Context, caller, to common.Address, amount *uint256.Int, due uint64) (*protocol.TxResponse, error) {
	return c.post(ctx, "/transfer-with-lockup", protocol.TransferWithLockUpRequest{
		Caller: caller, To: to, Amount: amount.Dec(), Due: due,
	})
}

// Unlock asks to release one entry. An entry that is not due yet is not an
// error: the response has Unlocked set to false.
func (c *Client) Unlock(ctx context.Context, caller, holder common.Address, index int) (*protocol.TxResponse, error) {
	return c.post(ctx, "/unlock", protocol.UnlockRequest{Caller: caller, Holder: holder, Index: index})
}

func (c *Client) UnlockAll(ctx context.Context, caller, holder common.Address) (*protocol.TxResponse, error) {
	return c.post(ctx, "/unlock-all", protocol.HolderRequest{Caller: caller, Holder: holder})
}

func (c *Client) ReleaseLock(ctx context.Context, caller, holder common.Address) (*protocol.TxResponse, error) {
	return c.post(ctx, "/release-lock", protocol.HolderRequest{Caller: caller, Holder: holder})
}

func (c *Client) Locks(ctx context.Context, holder common.Address) (*protocol.LocksResponse, error) {
	var out protocol.LocksResponse
	if err := c.get(ctx, "/locks/"+holder.Hex(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LockInfo(ctx context.Context, holder common.Address, index int) (*protocol.LockInfoResponse, error) {
	var out protocol.LockInfoResponse
	if err := c.get(ctx, fmt.Sprintf("/locks/%s/%d", holder.Hex(), index), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CheckLock(ctx context.Context, holder common.Address, amount *uint256.Int) (bool, error) {
	var out protocol.CheckLockResponse
	if err := c.get(ctx, "/check-lock/"+holder.Hex()+"/"+amount.Dec(), &out); err != nil {
		return false, err
	}
	return out.Allowed, nil
}

func (c *Client) LatestBlock(ctx context.Context) (*protocol.Block, error) {
	var out protocol.Block
	if err := c.get(ctx, "/block/latest", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
