// Package algod is the ledger gateway: an HTTP client for the ledger node
// covering parameter fetch, account and asset-holding reads, raw transaction
// submission and the bounded confirmation wait. Read operations are
// idempotent GETs; submission is a single POST of raw signed bytes. Node
// rejections surface verbatim so callers can reconstruct user-facing
// messages (duplicate-lease rejections in particular).
package algod

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"algo-custody/go-backend/pkg/models"
)

var (
	ErrUnavailable         = errors.New("ledger node unreachable")
	ErrConfirmationTimeout = errors.New("confirmation wait exceeded its round budget")
)

// RejectedError is a non-2xx node response: the node processed the request
// and refused it. Never retried; resubmitting an invalid request cannot
// succeed.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("ledger node rejected request (status %d): %s", e.StatusCode, e.Message)
}

// PoolRejectedError is a terminal pool error reported for a transaction
// after submission. Distinct from ErrConfirmationTimeout: a timed-out
// transaction may still confirm later, a pool-rejected one will not.
type PoolRejectedError struct {
	TxID      string
	PoolError string
}

func (e *PoolRejectedError) Error() string {
	return fmt.Sprintf("transaction %s rejected by pool: %s", e.TxID, e.PoolError)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		// Generous timeout: wait-for-block-after blocks until the next round.
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

type paramsResponse struct {
	MinFee    uint64 `json:"min-fee"`
	LastRound uint64 `json:"last-round"`
}

type accountResponse struct {
	Amount     uint64 `json:"amount"`
	MinBalance uint64 `json:"min-balance"`
}

type accountAssetResponse struct {
	AssetHolding struct {
		Amount   uint64 `json:"amount"`
		AssetID  uint64 `json:"asset-id"`
		IsFrozen bool   `json:"is-frozen"`
	} `json:"asset-holding"`
}

type submitResponse struct {
	TxID string `json:"txId"`
}

type statusResponse struct {
	LastRound uint64 `json:"last-round"`
}

type pendingResponse struct {
	ConfirmedRound uint64 `json:"confirmed-round"`
	PoolError      string `json:"pool-error"`
	AssetIndex     uint64 `json:"asset-index"`
}

// SuggestedParams fetches a fresh parameter snapshot. Callers must not mix
// snapshots within one transaction group.
func (c *Client) SuggestedParams(ctx context.Context) (models.NetworkParameters, error) {
	var parsed paramsResponse
	if err := c.get(ctx, "/v2/transactions/params", &parsed); err != nil {
		return models.NetworkParameters{}, err
	}
	return models.NetworkParameters{LastRound: parsed.LastRound, MinFee: parsed.MinFee}, nil
}

// AccountInformation returns the microalgo state of an address. An address
// the node has never seen yields the zero state: new accounts are valid
// zero-balance senders, not errors.
func (c *Client) AccountInformation(ctx context.Context, address string) (models.AccountState, error) {
	var parsed accountResponse
	err := c.get(ctx, "/v2/accounts/"+address+"?exclude=all", &parsed)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) && rejected.StatusCode == http.StatusNotFound {
			return models.AccountState{}, nil
		}
		return models.AccountState{}, err
	}
	return models.AccountState{Balance: parsed.Amount, MinBalance: parsed.MinBalance}, nil
}

// AccountAssetInformation returns the address's holding of one asset, or nil
// when the address has not opted in. nil and a zero-amount holding are
// different answers and both are meaningful.
func (c *Client) AccountAssetInformation(ctx context.Context, address string, assetID uint64) (*models.AssetHolding, error) {
	path := "/v2/accounts/" + address + "/assets/" + strconv.FormatUint(assetID, 10)
	var parsed accountAssetResponse
	err := c.get(ctx, path, &parsed)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) && rejected.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &models.AssetHolding{
		AssetID:  assetID,
		Amount:   parsed.AssetHolding.Amount,
		IsFrozen: parsed.AssetHolding.IsFrozen,
	}, nil
}

// SubmitRawTransaction posts canonical signed bytes (a single transaction or
// a concatenated atomic group) and returns the node-reported transaction id.
func (c *Client) SubmitRawTransaction(ctx context.Context, stx []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transactions", bytes.NewReader(stx))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-binary")
	c.setToken(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", rejectionFrom(resp)
	}
	var parsed submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	return parsed.TxID, nil
}

// LastRound reports the node's current round.
func (c *Client) LastRound(ctx context.Context) (uint64, error) {
	var parsed statusResponse
	if err := c.get(ctx, "/v2/status", &parsed); err != nil {
		return 0, err
	}
	return parsed.LastRound, nil
}

// PendingTransaction fetches the pending-pool status of a transaction.
func (c *Client) PendingTransaction(ctx context.Context, txID string) (models.ConfirmationResult, error) {
	var parsed pendingResponse
	if err := c.get(ctx, "/v2/transactions/pending/"+txID+"?format=json", &parsed); err != nil {
		return models.ConfirmationResult{}, err
	}
	return models.ConfirmationResult{
		TxID:           txID,
		ConfirmedRound: parsed.ConfirmedRound,
		PoolError:      parsed.PoolError,
		AssetIndex:     parsed.AssetIndex,
	}, nil
}

// WaitForConfirmation polls the pending pool once per observed round until
// the transaction confirms, the pool reports a terminal error, the round
// budget runs out, or ctx is done. This is the single long-suspending
// operation of the system and the caller's deadline propagates through ctx.
func (c *Client) WaitForConfirmation(ctx context.Context, txID string, maxRounds uint64) (models.ConfirmationResult, error) {
	round, err := c.LastRound(ctx)
	if err != nil {
		return models.ConfirmationResult{}, err
	}

	for waited := uint64(0); waited < maxRounds; waited++ {
		if err := ctx.Err(); err != nil {
			return models.ConfirmationResult{}, err
		}
		result, err := c.PendingTransaction(ctx, txID)
		if err != nil {
			return models.ConfirmationResult{}, err
		}
		if result.PoolError != "" {
			return models.ConfirmationResult{}, &PoolRejectedError{TxID: txID, PoolError: result.PoolError}
		}
		if result.ConfirmedRound > 0 {
			return result, nil
		}
		if err := c.waitForBlockAfter(ctx, round); err != nil {
			return models.ConfirmationResult{}, err
		}
		round++
	}
	return models.ConfirmationResult{}, fmt.Errorf("%w: %s after %d rounds", ErrConfirmationTimeout, txID, maxRounds)
}

func (c *Client) waitForBlockAfter(ctx context.Context, round uint64) error {
	return c.get(ctx, "/v2/status/wait-for-block-after/"+strconv.FormatUint(round, 10), nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.setToken(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rejectionFrom(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) setToken(req *http.Request) {
	if c.token != "" {
		req.Header.Set("X-Algo-API-Token", c.token)
	}
}

func rejectionFrom(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := strings.TrimSpace(string(raw))

	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		message = body.Message
	}
	return &RejectedError{StatusCode: resp.StatusCode, Message: message}
}
