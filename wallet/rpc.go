package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// EIP-1193 provider error code for a user-rejected request.
const codeUserRejected = 4001

// RPCProvider talks JSON-RPC 2.0 over HTTP to a wallet bridge endpoint.
type RPCProvider struct {
	endpoint string
	client   *http.Client
	nextID   atomic.Uint64
}

// NewRPCProvider creates a provider against the given bridge endpoint. A nil
// client gets a 10 second timeout default.
func NewRPCProvider(endpoint string, client *http.Client) *RPCProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RPCProvider{endpoint: endpoint, client: client}
}

// RequestAccounts prompts the user for account access.
func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	return p.accountsCall(ctx, "eth_requestAccounts")
}

// Accounts returns the already-authorized account list without prompting.
func (p *RPCProvider) Accounts(ctx context.Context) ([]string, error) {
	return p.accountsCall(ctx, "eth_accounts")
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (p *RPCProvider) accountsCall(ctx context.Context, method string) ([]string, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      p.nextID.Add(1),
		Method:  method,
		Params:  []any{},
	})
	if err != nil {
		return nil, fmt.Errorf("wallet: encode %s: %v", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("wallet: build %s request: %v", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: bridge returned %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProviderUnavailable, err)
	}
	if decoded.Error != nil {
		if decoded.Error.Code == codeUserRejected {
			return nil, fmt.Errorf("%w: %s", ErrUserDeclined, decoded.Error.Message)
		}
		return nil, fmt.Errorf("%w: rpc error %d: %s", ErrProviderUnavailable, decoded.Error.Code, decoded.Error.Message)
	}

	var accounts []string
	if err := json.Unmarshal(decoded.Result, &accounts); err != nil {
		return nil, fmt.Errorf("%w: decode accounts: %v", ErrProviderUnavailable, err)
	}
	return accounts, nil
}

// normalize lowercases an address so comparisons between the wallet, the
// session record, and the chain registry never diverge on hex casing.
func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
