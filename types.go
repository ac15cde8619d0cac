package walletgate

import (
	"io"

	internalaudit "github.com/scholarchain/walletgate/internal/audit"
	internalmetrics "github.com/scholarchain/walletgate/internal/metrics"
)

// Role names form the closed set recognized by the platform. The on-chain
// registry is the source of record; these constants exist so callers and the
// policy table agree on spelling.
const (
	RoleAdmin   = "admin"
	RoleDean    = "dean"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// KnownRole reports whether name belongs to the closed role set.
func KnownRole(name string) bool {
	switch name {
	case RoleAdmin, RoleDean, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// ReconcileState identifies the terminal state of a reconciliation run.
type ReconcileState uint8

const (
	// StateNoSession means the local store held no record; logged out, no remote calls made.
	StateNoSession ReconcileState = iota
	// StateExpired means the record exceeded its TTL or lacked a token; store cleared.
	StateExpired
	// StateBlocked means the wallet was unavailable but the fresh local cache was honored.
	StateBlocked
	// StateAddressMismatch means the connected account differed from the session address; store cleared.
	StateAddressMismatch
	// StateTokenRejected means the backend refused the cached token; store cleared.
	StateTokenRejected
	// StateVerified means wallet, token, and cache agree; timestamp refreshed.
	StateVerified
	// StateLoopGuard means the reload-loop guard short-circuited the run.
	StateLoopGuard
)

func (s ReconcileState) String() string {
	switch s {
	case StateNoSession:
		return "no_session"
	case StateExpired:
		return "expired"
	case StateBlocked:
		return "blocked"
	case StateAddressMismatch:
		return "address_mismatch"
	case StateTokenRejected:
		return "token_rejected"
	case StateVerified:
		return "verified"
	case StateLoopGuard:
		return "loop_guard"
	default:
		return "unknown"
	}
}

// ReconcileResult is returned by [Reconciler.Reconcile]. LoggedIn is the
// single answer surrounding code should consume; State and Reason explain it.
type ReconcileResult struct {
	LoggedIn bool
	State    ReconcileState

	Address string
	Role    string
	Name    string
	Email   string

	// Reason carries the user-facing explanation for a logged-out result
	// ("address changed", "session expired"). Never contains token material.
	Reason string

	// Warning is set on StateBlocked results: the caller is treated as logged
	// in but the wallet could not be consulted this run.
	Warning string
}

// LoginResult is returned by [Reconciler.Login].
type LoginResult struct {
	Address string
	Role    string
	Token   string
	Name    string
	Email   string
}

// AuditEvent is a structured audit record emitted by the reconciler.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the reconciler's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a specific counter in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricReconcileLoggedIn counts runs that ended logged in.
	MetricReconcileLoggedIn = MetricID(internalmetrics.MetricReconcileLoggedIn)
	// MetricReconcileLoggedOut counts runs that ended logged out.
	MetricReconcileLoggedOut = MetricID(internalmetrics.MetricReconcileLoggedOut)
	// MetricReconcileBlocked counts runs honored from cache without a wallet.
	MetricReconcileBlocked = MetricID(internalmetrics.MetricReconcileBlocked)
	// MetricSessionExpired counts TTL expirations.
	MetricSessionExpired = MetricID(internalmetrics.MetricSessionExpired)
	// MetricAddressMismatch counts wallet/session address divergences.
	MetricAddressMismatch = MetricID(internalmetrics.MetricAddressMismatch)
	// MetricTokenRejected counts backend token rejections.
	MetricTokenRejected = MetricID(internalmetrics.MetricTokenRejected)
	// MetricLoopGuardTripped counts reload-loop guard short circuits.
	MetricLoopGuardTripped = MetricID(internalmetrics.MetricLoopGuardTripped)
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess = MetricID(internalmetrics.MetricLoginSuccess)
	// MetricLoginFailure counts failed logins.
	MetricLoginFailure = MetricID(internalmetrics.MetricLoginFailure)
	// MetricLogout counts explicit logouts.
	MetricLogout = MetricID(internalmetrics.MetricLogout)
	// MetricRoleCheckDenied counts privileged role checks that failed.
	MetricRoleCheckDenied = MetricID(internalmetrics.MetricRoleCheckDenied)
	// MetricEventCoalesced counts account events absorbed by the debounce window.
	MetricEventCoalesced = MetricID(internalmetrics.MetricEventCoalesced)
	// MetricEventDropped counts account events dropped on a full queue.
	MetricEventDropped = MetricID(internalmetrics.MetricEventDropped)
)

// Metrics holds atomic counters for reconciliation outcomes.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all counters.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{Enabled: cfg.Enabled})
}
