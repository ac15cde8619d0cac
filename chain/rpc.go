package chain

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

// RPCAuthority queries the registry contract through a node's JSON-RPC
// endpoint. Calls are translated server-side by the bridge into contract
// reads; this client only speaks the bridge's method names.
type RPCAuthority struct {
	endpoint string
	client   *http.Client
	nextID   atomic.Uint64
}

// NewRPCAuthority creates an authority against the given node endpoint. A nil
// client gets a 10 second timeout default.
func NewRPCAuthority(endpoint string, client *http.Client) *RPCAuthority {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RPCAuthority{endpoint: endpoint, client: client}
}

func (a *RPCAuthority) IsRegistered(ctx context.Context, address string) (bool, error) {
	var registered bool
	if err := a.call(ctx, "registry_isRegistered", []any{normalize(address)}, &registered); err != nil {
		return false, err
	}
	return registered, nil
}

func (a *RPCAuthority) ProfileOf(ctx context.Context, address string) (Profile, error) {
	address = normalize(address)

	var raw struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Role    string `json:"role"`
		Exists  bool   `json:"exists"`
	}
	if err := a.call(ctx, "registry_getUser", []any{address}, &raw); err != nil {
		return Profile{}, err
	}
	if !raw.Exists {
		return Profile{}, fmt.Errorf("%w: %s", ErrNotRegistered, address)
	}

	return Profile{
		Address: normalize(raw.Address),
		Name:    raw.Name,
		Email:   raw.Email,
		Role:    strings.ToLower(raw.Role),
	}, nil
}

func (a *RPCAuthority) VerifyPassword(ctx context.Context, address, password string) (bool, error) {
	var ok bool
	if err := a.call(ctx, "registry_login", []any{normalize(address), password}, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *RPCAuthority) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      a.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("chain: encode %s: %v", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("chain: build %s request: %v", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChainUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: node returned %d", ErrChainUnavailable, resp.StatusCode)
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrChainUnavailable, err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("%w: rpc error %d: %s", ErrChainUnavailable, decoded.Error.Code, decoded.Error.Message)
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("%w: decode %s result: %v", ErrChainUnavailable, method, err)
	}
	return nil
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
