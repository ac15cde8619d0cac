// Package walletgate keeps three sources of user identity in agreement: the
// browser wallet account, the server-issued bearer token cached locally, and
// the role registered for the account on chain. It exposes a single
// reconciliation authority that page guards and UI policy layers consume.
//
// The package is designed for event-driven page workloads: Reconciler methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build], and concurrent reconciliation triggers are coalesced by the
// built-in debounce window.
//
// # Architecture boundaries
//
// walletgate is the public surface. It exposes [Reconciler], [Builder],
// [Config], and value types (ReconcileResult, AuditEvent, MetricsSnapshot).
// Collaborators live in sub-packages: session (local record store), wallet
// (provider access), chain (on-chain role registry), backend (auth API),
// policy (role capabilities), kv (storage backends). Coordination internals
// (audit dispatch, metrics) live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Trust the locally cached role for privileged decisions; [Reconciler.RequireRole]
//     always re-queries the chain registry and fails closed.
//   - Expose tokens in errors, audit events, or log lines.
//   - Perform I/O outside of Reconciler methods (construction via Builder is
//     allocation-only until Build).
package walletgate
