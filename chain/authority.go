// Package chain reads identity facts from the on-chain user registry:
// registration status, role, profile, and the password pre-check used during
// login. Everything here is read-only; writes go through the backend.
package chain

import (
	"context"
	"errors"
)

// ErrChainUnavailable is returned when the registry node cannot be reached.
var ErrChainUnavailable = errors.New("chain registry unavailable")

// ErrNotRegistered is returned for addresses with no registry entry.
var ErrNotRegistered = errors.New("address not registered")

// Profile is the registry's public record for an address.
type Profile struct {
	Address string
	Name    string
	Email   string
	Role    string
}

// ProfileRefresher is implemented by authorities that answer ProfileOf from
// a cache. FreshProfileOf must hit the registry; privileged role checks use
// it so a revoked role is never granted from a stale entry.
type ProfileRefresher interface {
	FreshProfileOf(ctx context.Context, address string) (Profile, error)
}

// Authority answers identity questions against the user registry.
type Authority interface {
	// IsRegistered reports whether the address has a registry entry.
	IsRegistered(ctx context.Context, address string) (bool, error)

	// ProfileOf returns the registry record for a registered address.
	// Fails with [ErrNotRegistered] when no entry exists.
	ProfileOf(ctx context.Context, address string) (Profile, error)

	// VerifyPassword checks the login password against the registry record.
	// A false return with nil error means the password simply did not match.
	VerifyPassword(ctx context.Context, address, password string) (bool, error)
}
