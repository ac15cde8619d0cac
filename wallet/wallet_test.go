package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type scriptedProvider struct {
	accounts []string
	err      error
}

func (p *scriptedProvider) RequestAccounts(context.Context) ([]string, error) {
	return p.accounts, p.err
}

func (p *scriptedProvider) Accounts(context.Context) ([]string, error) {
	return p.accounts, p.err
}

func TestSessionConnectCachesAccount(t *testing.T) {
	sess := NewSession(&scriptedProvider{accounts: []string{"0xABCdef", "0x222"}})

	if _, ok := sess.CurrentAccount(); ok {
		t.Fatal("account cached before Connect")
	}

	account, err := sess.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if account != "0xabcdef" {
		t.Errorf("Connect = %q, want lowercase primary account", account)
	}

	cached, ok := sess.CurrentAccount()
	if !ok || cached != "0xabcdef" {
		t.Errorf("CurrentAccount = (%q, %v)", cached, ok)
	}
}

func TestSessionConnectNoAccounts(t *testing.T) {
	sess := NewSession(&scriptedProvider{})
	if _, err := sess.Connect(context.Background()); !errors.Is(err, ErrNoAccounts) {
		t.Fatalf("Connect = %v, want ErrNoAccounts", err)
	}
}

func TestSessionNilProvider(t *testing.T) {
	sess := NewSession(nil)
	if _, err := sess.Connect(context.Background()); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("Connect = %v, want ErrProviderUnavailable", err)
	}
	if _, err := sess.Refresh(context.Background()); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("Refresh = %v, want ErrProviderUnavailable", err)
	}
}

func TestSessionRefreshClearsOnEmpty(t *testing.T) {
	provider := &scriptedProvider{accounts: []string{"0xabc"}}
	sess := NewSession(provider)

	if _, err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// Wallet locked: the silent read comes back empty and the cache must not
	// keep claiming a connection.
	provider.accounts = nil
	if _, err := sess.Refresh(context.Background()); !errors.Is(err, ErrNoAccounts) {
		t.Fatalf("Refresh = %v, want ErrNoAccounts", err)
	}
	if _, ok := sess.CurrentAccount(); ok {
		t.Error("cache survived an empty account list")
	}
}

func TestSessionObserve(t *testing.T) {
	sess := NewSession(&scriptedProvider{})

	sess.Observe([]string{"0xDEF"})
	account, ok := sess.CurrentAccount()
	if !ok || account != "0xdef" {
		t.Fatalf("CurrentAccount after Observe = (%q, %v)", account, ok)
	}

	sess.Observe(nil)
	if _, ok := sess.CurrentAccount(); ok {
		t.Error("Observe(nil) should clear the cache")
	}
}

func rpcBridge(t *testing.T, handler func(method string) (any, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("malformed rpc request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		result, rpcErr := handler(req.Method)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestRPCProviderAccounts(t *testing.T) {
	var sawMethod string
	server := rpcBridge(t, func(method string) (any, *rpcError) {
		sawMethod = method
		return []string{"0xAAA"}, nil
	})
	defer server.Close()

	provider := NewRPCProvider(server.URL, nil)

	accounts, err := provider.Accounts(context.Background())
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	if sawMethod != "eth_accounts" {
		t.Errorf("silent read used %q", sawMethod)
	}
	if len(accounts) != 1 || accounts[0] != "0xAAA" {
		t.Errorf("accounts = %v", accounts)
	}

	if _, err := provider.RequestAccounts(context.Background()); err != nil {
		t.Fatalf("RequestAccounts: %v", err)
	}
	if sawMethod != "eth_requestAccounts" {
		t.Errorf("prompting read used %q", sawMethod)
	}
}

func TestRPCProviderUserRejected(t *testing.T) {
	server := rpcBridge(t, func(string) (any, *rpcError) {
		return nil, &rpcError{Code: codeUserRejected, Message: "User rejected the request"}
	})
	defer server.Close()

	_, err := NewRPCProvider(server.URL, nil).RequestAccounts(context.Background())
	if !errors.Is(err, ErrUserDeclined) {
		t.Fatalf("err = %v, want ErrUserDeclined", err)
	}
}

func TestRPCProviderOtherErrors(t *testing.T) {
	server := rpcBridge(t, func(string) (any, *rpcError) {
		return nil, &rpcError{Code: -32601, Message: "method not found"}
	})
	defer server.Close()

	_, err := NewRPCProvider(server.URL, nil).Accounts(context.Background())
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("rpc error = %v, want ErrProviderUnavailable", err)
	}
}

func TestRPCProviderUnreachable(t *testing.T) {
	server := httptest.NewServer(nil)
	server.Close()

	_, err := NewRPCProvider(server.URL, nil).Accounts(context.Background())
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}
