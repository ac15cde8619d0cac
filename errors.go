package walletgate

import "errors"

var (
	// ErrWalletUnavailable is returned when no wallet provider is installed or reachable.
	ErrWalletUnavailable = errors.New("wallet provider unavailable")
	// ErrAccessDenied is returned when the user declines the wallet connection prompt.
	ErrAccessDenied = errors.New("wallet access denied")
	// ErrNoAccount is returned when the provider reports no connected accounts.
	ErrNoAccount = errors.New("no wallet account connected")
	// ErrSessionExpired is returned when the cached session exceeded its TTL.
	ErrSessionExpired = errors.New("session expired")
	// ErrTokenRejected is returned when the backend rejects the cached bearer token.
	ErrTokenRejected = errors.New("bearer token rejected")
	// ErrAddressMismatch is returned when the connected wallet account differs from the session address.
	ErrAddressMismatch = errors.New("wallet address changed")
	// ErrNotRegistered is returned when the wallet address has no on-chain registration.
	ErrNotRegistered = errors.New("address not registered on chain")
	// ErrInvalidCredentials is returned when login fails against the backend or chain credential check.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNetworkUnavailable is returned when the backend or chain registry cannot be reached.
	ErrNetworkUnavailable = errors.New("identity backend unreachable")
	// ErrPermissionDenied is returned when a privileged role check fails.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrRoleUnknown is returned when the chain registry reports a role outside the closed set.
	ErrRoleUnknown = errors.New("unknown role")
	// ErrReloadLoop is returned when the reload-loop guard short-circuits reconciliation.
	ErrReloadLoop = errors.New("reconciliation loop detected")
	// ErrReconcilerNotReady is returned when a Reconciler method is called before Build wired its dependencies.
	ErrReconcilerNotReady = errors.New("reconciler not initialized")
	// ErrEventQueueClosed is returned when an account event is delivered after Close.
	ErrEventQueueClosed = errors.New("account event queue closed")
)
