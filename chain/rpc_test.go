package chain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func registryNode(t *testing.T, users map[string]map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("malformed rpc request: %v", err)
			return
		}

		address, _ := req.Params[0].(string)
		user, exists := users[address]

		var result any
		switch req.Method {
		case "registry_isRegistered":
			result = exists
		case "registry_getUser":
			if exists {
				result = user
			} else {
				result = map[string]any{"exists": false}
			}
		case "registry_login":
			password, _ := req.Params[1].(string)
			result = exists && user["password"] == password
		default:
			t.Errorf("unexpected method %q", req.Method)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req.ID, "result": result,
		})
	}))
}

func TestRPCAuthorityProfile(t *testing.T) {
	server := registryNode(t, map[string]map[string]any{
		"0xabc": {
			"address": "0xABC", "name": "Ada", "email": "ada@example.edu",
			"role": "Dean", "exists": true, "password": "pw",
		},
	})
	defer server.Close()

	authority := NewRPCAuthority(server.URL, nil)
	ctx := context.Background()

	profile, err := authority.ProfileOf(ctx, " 0xABC ")
	if err != nil {
		t.Fatalf("ProfileOf: %v", err)
	}
	if profile.Address != "0xabc" || profile.Role != "dean" {
		t.Errorf("profile = %+v, want normalized address and role", profile)
	}

	registered, err := authority.IsRegistered(ctx, "0xABC")
	if err != nil || !registered {
		t.Fatalf("IsRegistered = (%v, %v)", registered, err)
	}

	ok, err := authority.VerifyPassword(ctx, "0xabc", "pw")
	if err != nil || !ok {
		t.Fatalf("VerifyPassword = (%v, %v)", ok, err)
	}
	ok, err = authority.VerifyPassword(ctx, "0xabc", "nope")
	if err != nil || ok {
		t.Fatalf("VerifyPassword wrong pw = (%v, %v), want false match", ok, err)
	}
}

func TestRPCAuthorityUnknownAddress(t *testing.T) {
	server := registryNode(t, nil)
	defer server.Close()

	authority := NewRPCAuthority(server.URL, nil)

	if _, err := authority.ProfileOf(context.Background(), "0xghost"); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("ProfileOf = %v, want ErrNotRegistered", err)
	}
	registered, err := authority.IsRegistered(context.Background(), "0xghost")
	if err != nil || registered {
		t.Fatalf("IsRegistered = (%v, %v), want false", registered, err)
	}
}

func TestRPCAuthorityUnreachable(t *testing.T) {
	server := httptest.NewServer(nil)
	server.Close()

	_, err := NewRPCAuthority(server.URL, nil).ProfileOf(context.Background(), "0xabc")
	if !errors.Is(err, ErrChainUnavailable) {
		t.Fatalf("err = %v, want ErrChainUnavailable", err)
	}
}
