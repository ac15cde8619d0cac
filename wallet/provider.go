// Package wallet exposes the user's key-holding software to the reconciler:
// account access requests, the current account identity, and a feed of
// account-changed notifications.
package wallet

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrProviderUnavailable is returned when no wallet provider is installed or
// the bridge endpoint cannot be reached.
var ErrProviderUnavailable = errors.New("wallet provider unavailable")

// ErrUserDeclined is returned when the user rejects the connection prompt.
var ErrUserDeclined = errors.New("wallet connection declined")

// ErrNoAccounts is returned when the provider holds no unlocked accounts.
var ErrNoAccounts = errors.New("wallet has no accounts")

// Provider is the minimal surface of a wallet bridge. RequestAccounts may
// prompt the user; Accounts never does.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	Accounts(ctx context.Context) ([]string, error)
}

// AccountChange is one provider notification: the new account list at the
// time it was observed.
type AccountChange struct {
	Accounts []string
	At       time.Time
}

// Feed delivers account-changed notifications. Close stops the feed and
// closes the channel.
type Feed interface {
	Changes() <-chan AccountChange
	Close() error
}

// Session caches the last-known connected account on top of a Provider.
// It is the WalletSession of the identity model: one per page context, not
// a process-wide singleton.
type Session struct {
	provider Provider

	mu      sync.RWMutex
	account string
}

// NewSession wraps a provider. No I/O happens until Connect or Refresh.
func NewSession(provider Provider) *Session {
	return &Session{provider: provider}
}

// Connect requests account access and caches the primary account,
// lowercase-normalized. Fails with [ErrProviderUnavailable], [ErrUserDeclined],
// or [ErrNoAccounts].
func (s *Session) Connect(ctx context.Context) (string, error) {
	if s == nil || s.provider == nil {
		return "", ErrProviderUnavailable
	}

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", ErrNoAccounts
	}

	account := normalize(accounts[0])
	s.mu.Lock()
	s.account = account
	s.mu.Unlock()

	return account, nil
}

// Refresh re-reads the connected account without prompting and updates the
// cache. An empty account list clears the cache and returns [ErrNoAccounts].
func (s *Session) Refresh(ctx context.Context) (string, error) {
	if s == nil || s.provider == nil {
		return "", ErrProviderUnavailable
	}

	accounts, err := s.provider.Accounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		s.mu.Lock()
		s.account = ""
		s.mu.Unlock()
		return "", ErrNoAccounts
	}

	account := normalize(accounts[0])
	s.mu.Lock()
	s.account = account
	s.mu.Unlock()

	return account, nil
}

// CurrentAccount returns the last-known connected account, or false if never
// connected.
func (s *Session) CurrentAccount() (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == "" {
		return "", false
	}
	return s.account, true
}

// Observe records an externally delivered account list, as pushed by a
// [Feed] notification.
func (s *Session) Observe(accounts []string) {
	if s == nil {
		return
	}
	account := ""
	if len(accounts) > 0 {
		account = normalize(accounts[0])
	}
	s.mu.Lock()
	s.account = account
	s.mu.Unlock()
}
