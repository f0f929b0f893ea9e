package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smolbet/oracle/internal/model"
)

// Ledger failure taxonomy.
var (
	ErrAuthFailure = errors.New("ledger auth failure")
	ErrTransport   = errors.New("ledger transport failure")
	ErrRejected    = errors.New("ledger rejected commit")
)

const (
	maxDiagnosticBody = 200
	maxResponseBytes  = 1 << 20
)

// Committer writes verdicts to the bet contract through its RPC
// gateway. The signing credential is dedicated to the oracle and is
// never the inbound request's own signer.
//
// The gateway is idempotency-unverified: the committer never re-sends
// a commit whose outcome it did not observe. That policy lives in the
// pipeline; this client does exactly one attempt per call.
type Committer struct {
	rpcURL     string
	contractID string
	signingKey string
	httpClient *http.Client
}

// NewCommitter creates a committer for the given contract
func NewCommitter(rpcURL, contractID, signingKey string, timeout time.Duration) *Committer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Committer{
		rpcURL:     strings.TrimSuffix(rpcURL, "/"),
		contractID: contractID,
		signingKey: signingKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// callRequest is the gateway's function-call body.
type callRequest struct {
	ContractID string          `json:"contract_id"`
	MethodName string          `json:"method_name"`
	Args       json.RawMessage `json:"args"`
}

type updateBetArgs struct {
	Index      int64  `json:"index"`
	Resolution string `json:"resolution"`
}

type getBetArgs struct {
	Index int64 `json:"index"`
}

type callResponse struct {
	TxHash string          `json:"tx_hash"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// Commit writes update_bet(index, resolution) to the contract and
// returns the acknowledgement.
func (c *Committer) Commit(ctx context.Context, betID int64, verdict model.Verdict) (*model.CommitRecord, error) {
	args, err := json.Marshal(updateBetArgs{Index: betID, Resolution: string(verdict)})
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}

	resp, err := c.call(ctx, "/call", callRequest{
		ContractID: c.contractID,
		MethodName: "update_bet",
		Args:       args,
	}, true)
	if err != nil {
		return nil, err
	}

	return &model.CommitRecord{
		BetID:       betID,
		Verdict:     verdict,
		TxHash:      resp.TxHash,
		CommittedAt: time.Now().UTC(),
	}, nil
}

// GetBet reads a bet record back via the contract's get_bet view. The
// pipeline uses it to skip bets the contract already settled.
func (c *Committer) GetBet(ctx context.Context, betID int64) (*model.Bet, error) {
	args, err := json.Marshal(getBetArgs{Index: betID})
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}

	resp, err := c.call(ctx, "/view", callRequest{
		ContractID: c.contractID,
		MethodName: "get_bet",
		Args:       args,
	}, false)
	if err != nil {
		return nil, err
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil, nil
	}

	var bet model.Bet
	if err := json.Unmarshal(resp.Result, &bet); err != nil {
		return nil, fmt.Errorf("%w: unmarshal bet: %v", ErrRejected, err)
	}
	return &bet, nil
}

// call posts one request to the gateway. View calls are unsigned.
func (c *Committer) call(ctx context.Context, path string, body callRequest, signed bool) (*callResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if signed {
		if c.signingKey == "" {
			return nil, fmt.Errorf("%w: signing key not configured", ErrAuthFailure)
		}
		req.Header.Set("Authorization", "Bearer "+c.signingKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrAuthFailure, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, truncate(respBody, maxDiagnosticBody))
	}

	var parsed callResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrRejected, err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRejected, truncate([]byte(parsed.Error), maxDiagnosticBody))
	}

	return &parsed, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
