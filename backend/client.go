// Package backend is the client for the platform's auth API. The token it
// issues is the real session credential; the chain registry only pre-checks
// the password.
package backend

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

	"github.com/golang-jwt/jwt/v5"
)

// ErrBackendUnavailable is returned for transport failures and 5xx responses.
// Callers treat it as a soft failure: the cached session stays authoritative.
var ErrBackendUnavailable = errors.New("backend unavailable")

// ErrTokenRejected is returned when the backend answers 401 or 403. Unlike
// transport failures this verdict is authoritative.
var ErrTokenRejected = errors.New("backend rejected token")

// ErrLoginRejected is returned when the backend refuses the credentials.
var ErrLoginRejected = errors.New("backend rejected login")

// Identity is the backend's view of an authenticated user.
type Identity struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

// LoginReply carries the issued token plus the user record.
type LoginReply struct {
	Token string
	User  Identity
}

// Client talks to the auth API over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for the auth API at baseURL. A nil client gets a
// 15 second timeout default.
func New(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Login exchanges address and password for a session token.
func (c *Client) Login(ctx context.Context, address, password string) (LoginReply, error) {
	payload := map[string]string{
		"address":  strings.ToLower(strings.TrimSpace(address)),
		"password": password,
	}

	var reply struct {
		Success bool     `json:"success"`
		Message string   `json:"message"`
		Token   string   `json:"token"`
		User    Identity `json:"user"`
	}
	status, err := c.postJSON(ctx, "/api/login", payload, &reply)
	if err != nil {
		return LoginReply{}, err
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return LoginReply{}, fmt.Errorf("%w: %s", ErrLoginRejected, reply.Message)
	case status >= 500:
		return LoginReply{}, fmt.Errorf("%w: login returned %d", ErrBackendUnavailable, status)
	case status != http.StatusOK || !reply.Success:
		return LoginReply{}, fmt.Errorf("%w: %s", ErrLoginRejected, reply.Message)
	case reply.Token == "":
		return LoginReply{}, fmt.Errorf("%w: empty token in login reply", ErrBackendUnavailable)
	}

	reply.User.Address = strings.ToLower(reply.User.Address)
	reply.User.Role = strings.ToLower(reply.User.Role)
	return LoginReply{Token: reply.Token, User: reply.User}, nil
}

// Me validates a token against the backend and returns the identity bound to
// it. 401 and 403 map to [ErrTokenRejected]; everything else that fails maps
// to [ErrBackendUnavailable].
func (c *Client) Me(ctx context.Context, token string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/me", nil)
	if err != nil {
		return Identity{}, fmt.Errorf("backend: build me request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Identity{}, ErrTokenRejected
	case resp.StatusCode != http.StatusOK:
		return Identity{}, fmt.Errorf("%w: me returned %d", ErrBackendUnavailable, resp.StatusCode)
	}

	var reply struct {
		User Identity `json:"user"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&reply); err != nil {
		return Identity{}, fmt.Errorf("%w: decode me reply: %v", ErrBackendUnavailable, err)
	}
	reply.User.Address = strings.ToLower(reply.User.Address)
	reply.User.Role = strings.ToLower(reply.User.Role)
	return reply.User, nil
}

// Register creates a backend account for an address already present in the
// chain registry.
func (c *Client) Register(ctx context.Context, address, name, email, password string) error {
	payload := map[string]string{
		"address":  strings.ToLower(strings.TrimSpace(address)),
		"name":     name,
		"email":    email,
		"password": password,
	}

	var reply struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	status, err := c.postJSON(ctx, "/api/register", payload, &reply)
	if err != nil {
		return err
	}
	if status >= 500 {
		return fmt.Errorf("%w: register returned %d", ErrBackendUnavailable, status)
	}
	if status != http.StatusOK && status != http.StatusCreated || !reply.Success {
		return fmt.Errorf("%w: %s", ErrLoginRejected, reply.Message)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("backend: encode %s payload: %v", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("backend: build %s request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	// Error replies still carry a JSON body with a message; a decode failure
	// on those is not worth surfacing over the status code.
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil && resp.StatusCode == http.StatusOK {
		return resp.StatusCode, fmt.Errorf("%w: decode %s reply: %v", ErrBackendUnavailable, path, err)
	}
	return resp.StatusCode, nil
}

// TokenExpiry peeks at a JWT's exp claim without verifying the signature.
// Verification belongs to the backend; this is only used to decide whether a
// cached token is worth presenting at all. Tokens without an exp claim
// return ok=false.
func TokenExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return time.Time{}, false
	}
	return expiry.Time, true
}
