package walletgate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scholarchain/walletgate/backend"
	"github.com/scholarchain/walletgate/chain"
	internalaudit "github.com/scholarchain/walletgate/internal/audit"
	internalmetrics "github.com/scholarchain/walletgate/internal/metrics"
	"github.com/scholarchain/walletgate/policy"
	"github.com/scholarchain/walletgate/session"
	"github.com/scholarchain/walletgate/wallet"
)

// BackendAPI is the subset of the auth API the reconciler consumes.
// *backend.Client satisfies it.
type BackendAPI interface {
	Login(ctx context.Context, address, password string) (backend.LoginReply, error)
	Me(ctx context.Context, token string) (backend.Identity, error)
	Register(ctx context.Context, address, name, email, password string) error
}

// Reconciler drives the identity state machine: it reads the wallet, the
// local session record, and (optionally) the backend, and resolves them into
// a single logged-in-or-not answer. One Reconciler per tab.
type Reconciler struct {
	cfg     Config
	store   *session.Store
	wallet  *wallet.Session
	chain   chain.Authority
	backend BackendAPI
	policy  *policy.Table
	audit   *internalaudit.Dispatcher
	metrics *internalmetrics.Metrics

	tabID string
	now   func() time.Time

	// failures counts consecutive failed reconciliations for this tab. It
	// backs the reload-loop guard and resets on any clean terminal state.
	failures atomic.Int32

	pageMu        sync.RWMutex
	pageURL       string
	pageSensitive bool

	pump      *eventPump
	closeOnce sync.Once
}

// Reconcile resolves the current identity state. It never returns an error
// for ordinary logged-out outcomes; the result's State and Reason carry the
// explanation. Errors are reserved for misuse and storage faults.
func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileResult, error) {
	if r == nil || r.store == nil {
		return ReconcileResult{}, ErrReconcilerNotReady
	}
	now := r.now()

	if int(r.failures.Load()) >= r.cfg.Reconcile.MaxConsecutiveFailures {
		r.metrics.Inc(internalmetrics.MetricLoopGuardTripped)
		r.emitAudit(ctx, auditEventLoopGuard, "", false, ErrReloadLoop, nil)
		return ReconcileResult{
			State:  StateLoopGuard,
			Reason: "too many consecutive session failures, staying logged out",
		}, nil
	}

	sess, err := r.store.Load(ctx)
	if err != nil {
		if errors.Is(err, session.ErrCorruptRecord) {
			// Store already cleared the slot; treat as a fresh visitor.
			r.failures.Store(0)
			return r.loggedOut(ctx, StateNoSession, "session data was unreadable and has been reset", nil), nil
		}
		return ReconcileResult{}, fmt.Errorf("walletgate: load session: %w", err)
	}
	if sess == nil {
		r.failures.Store(0)
		return r.loggedOut(ctx, StateNoSession, "", nil), nil
	}

	if expired, reason := r.sessionExpired(sess, now); expired {
		if err := r.store.Clear(ctx); err != nil {
			log.Print("walletgate: clearing expired session: ", err)
		}
		r.metrics.Inc(internalmetrics.MetricSessionExpired)
		r.failures.Store(0)
		return r.loggedOut(ctx, StateExpired, reason, ErrSessionExpired), nil
	}

	account, walletErr := r.wallet.Refresh(ctx)
	if walletErr != nil {
		// A pushed account-changed notification may have updated the cached
		// account even though the provider cannot be read right now. That
		// positive knowledge outranks the stored session.
		if cached, ok := r.wallet.CurrentAccount(); ok && !sess.MatchesAccount(cached) {
			return r.accountMismatch(ctx), nil
		}

		// The wallet cannot be consulted. The fresh cache stays authoritative
		// so a flaky extension does not log the user out, but the caller is
		// told the address could not be confirmed this run.
		r.metrics.Inc(internalmetrics.MetricReconcileBlocked)
		result := r.verifiedResult(sess)
		result.State = StateBlocked
		result.Warning = "wallet unavailable, session not re-verified against the connected account"
		r.failures.Store(0)
		r.emitAudit(ctx, auditEventReconcile, sess.Address, true, walletErr, func() map[string]string {
			return map[string]string{"state": StateBlocked.String()}
		})
		return result, nil
	}

	if !sess.MatchesAccount(account) {
		return r.accountMismatch(ctx), nil
	}

	if r.cfg.Reconcile.VerifyWithBackend && r.backend != nil {
		identity, meErr := r.backend.Me(ctx, sess.Token)
		switch {
		case meErr == nil:
			sess.Name = identity.Name
			sess.Email = identity.Email
			if identity.Role != "" {
				sess.Role = identity.Role
			}
		case errors.Is(meErr, backend.ErrTokenRejected):
			// An authoritative rejection, unlike a transport failure.
			if err := r.store.Clear(ctx); err != nil {
				log.Print("walletgate: clearing rejected session: ", err)
			}
			r.metrics.Inc(internalmetrics.MetricTokenRejected)
			r.failures.Add(1)
			return r.loggedOut(ctx, StateTokenRejected, "session is no longer valid, please log in again", ErrTokenRejected), nil
		default:
			log.Print("walletgate: backend verification skipped: ", meErr)
		}
	}

	if err := r.store.Touch(ctx, sess, now); err != nil {
		log.Print("walletgate: refreshing session timestamp: ", err)
	}
	r.failures.Store(0)
	r.metrics.Inc(internalmetrics.MetricReconcileLoggedIn)
	r.emitAudit(ctx, auditEventReconcile, sess.Address, true, nil, func() map[string]string {
		return map[string]string{"state": StateVerified.String(), "role": sess.Role}
	})
	return r.verifiedResult(sess), nil
}

// accountMismatch ends a run whose wallet account no longer matches the
// session address: clear both slots and count toward the loop guard.
func (r *Reconciler) accountMismatch(ctx context.Context) ReconcileResult {
	if err := r.store.Clear(ctx); err != nil {
		log.Print("walletgate: clearing mismatched session: ", err)
	}
	r.metrics.Inc(internalmetrics.MetricAddressMismatch)
	r.failures.Add(1)
	return r.loggedOut(ctx, StateAddressMismatch, "wallet account changed, please log in again", ErrAddressMismatch)
}

// sessionExpired applies the stricter of the configured TTL and the token's
// own exp claim, when the token carries one.
func (r *Reconciler) sessionExpired(sess *session.Session, now time.Time) (bool, string) {
	if !sess.Fresh(now, r.cfg.Session.TTL) {
		return true, "session expired, please log in again"
	}
	if expiry, ok := backend.TokenExpiry(sess.Token); ok && now.After(expiry) {
		return true, "session credential expired, please log in again"
	}
	return false, ""
}

func (r *Reconciler) verifiedResult(sess *session.Session) ReconcileResult {
	return ReconcileResult{
		LoggedIn: true,
		State:    StateVerified,
		Address:  sess.Address,
		Role:     sess.Role,
		Name:     sess.Name,
		Email:    sess.Email,
	}
}

func (r *Reconciler) loggedOut(ctx context.Context, state ReconcileState, reason string, cause error) ReconcileResult {
	r.metrics.Inc(internalmetrics.MetricReconcileLoggedOut)
	r.emitAudit(ctx, auditEventReconcile, "", false, cause, func() map[string]string {
		return map[string]string{"state": state.String()}
	})
	return ReconcileResult{State: state, Reason: reason}
}

// Login establishes a session: connect the wallet, pre-check the password
// against the chain registry, then exchange it with the backend for the real
// session credential. The stored record is only written after every step
// succeeded.
func (r *Reconciler) Login(ctx context.Context, password string) (LoginResult, error) {
	if r == nil || r.store == nil || r.chain == nil || r.backend == nil {
		return LoginResult{}, ErrReconcilerNotReady
	}

	address, err := r.wallet.Connect(ctx)
	if err != nil {
		return r.loginFailed(ctx, "", r.mapWalletError(err))
	}

	registered, err := r.chain.IsRegistered(ctx, address)
	if err != nil {
		return r.loginFailed(ctx, address, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err))
	}
	if !registered {
		return r.loginFailed(ctx, address, ErrNotRegistered)
	}

	ok, err := r.chain.VerifyPassword(ctx, address, password)
	if err != nil {
		return r.loginFailed(ctx, address, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err))
	}
	if !ok {
		return r.loginFailed(ctx, address, ErrInvalidCredentials)
	}

	reply, err := r.backend.Login(ctx, address, password)
	if err != nil {
		switch {
		case errors.Is(err, backend.ErrLoginRejected):
			return r.loginFailed(ctx, address, fmt.Errorf("%w: %v", ErrInvalidCredentials, err))
		default:
			return r.loginFailed(ctx, address, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err))
		}
	}

	role := reply.User.Role
	if !KnownRole(role) {
		return r.loginFailed(ctx, address, fmt.Errorf("%w: %q", ErrRoleUnknown, role))
	}

	sess := &session.Session{
		Address:  address,
		Token:    reply.Token,
		Role:     role,
		Name:     reply.User.Name,
		Email:    reply.User.Email,
		LoggedIn: true,
		IssuedAt: r.now().Unix(),
	}
	if err := r.store.Save(ctx, sess); err != nil {
		return r.loginFailed(ctx, address, fmt.Errorf("walletgate: persist session: %w", err))
	}

	r.failures.Store(0)
	r.metrics.Inc(internalmetrics.MetricLoginSuccess)
	r.emitAudit(ctx, auditEventLogin, address, true, nil, func() map[string]string {
		return map[string]string{"role": role}
	})

	return LoginResult{
		Address: address,
		Role:    role,
		Token:   reply.Token,
		Name:    reply.User.Name,
		Email:   reply.User.Email,
	}, nil
}

func (r *Reconciler) loginFailed(ctx context.Context, address string, err error) (LoginResult, error) {
	r.metrics.Inc(internalmetrics.MetricLoginFailure)
	r.emitAudit(ctx, auditEventLogin, address, false, err, nil)
	return LoginResult{}, err
}

func (r *Reconciler) mapWalletError(err error) error {
	switch {
	case errors.Is(err, wallet.ErrUserDeclined):
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	case errors.Is(err, wallet.ErrNoAccounts):
		return fmt.Errorf("%w: %v", ErrNoAccount, err)
	default:
		return fmt.Errorf("%w: %v", ErrWalletUnavailable, err)
	}
}

// Logout clears both storage slots. Idempotent; logging out twice is not an
// error.
func (r *Reconciler) Logout(ctx context.Context) error {
	if r == nil || r.store == nil {
		return ErrReconcilerNotReady
	}

	sess, _ := r.store.Load(ctx)
	address := ""
	if sess != nil {
		address = sess.Address
	}

	if err := r.store.Clear(ctx); err != nil {
		return fmt.Errorf("walletgate: clear session: %w", err)
	}

	r.failures.Store(0)
	r.metrics.Inc(internalmetrics.MetricLogout)
	r.emitAudit(ctx, auditEventLogout, address, true, nil, nil)
	return nil
}

// Register creates a backend account for the connected wallet address. The
// address must already exist in the chain registry.
func (r *Reconciler) Register(ctx context.Context, name, email, password string) error {
	if r == nil || r.store == nil || r.chain == nil || r.backend == nil {
		return ErrReconcilerNotReady
	}

	address, err := r.wallet.Connect(ctx)
	if err != nil {
		err = r.mapWalletError(err)
		r.emitAudit(ctx, auditEventRegister, "", false, err, nil)
		return err
	}

	registered, err := r.chain.IsRegistered(ctx, address)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
		r.emitAudit(ctx, auditEventRegister, address, false, err, nil)
		return err
	}
	if !registered {
		r.emitAudit(ctx, auditEventRegister, address, false, ErrNotRegistered, nil)
		return ErrNotRegistered
	}

	if err := r.backend.Register(ctx, address, name, email, password); err != nil {
		if errors.Is(err, backend.ErrLoginRejected) {
			err = fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		} else {
			err = fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
		}
		r.emitAudit(ctx, auditEventRegister, address, false, err, nil)
		return err
	}

	r.emitAudit(ctx, auditEventRegister, address, true, nil, nil)
	return nil
}

// RequireRole gates a privileged action. It re-reads the role from the chain
// registry rather than trusting the cached session, and fails closed: any
// doubt, including registry unavailability, denies.
func (r *Reconciler) RequireRole(ctx context.Context, required string) error {
	if r == nil || r.store == nil {
		return ErrReconcilerNotReady
	}
	if r.chain == nil {
		r.denyRole(ctx, "", required, nil)
		return ErrPermissionDenied
	}

	result, err := r.Reconcile(ctx)
	if err != nil || !result.LoggedIn {
		r.denyRole(ctx, "", required, err)
		return ErrPermissionDenied
	}

	profile, err := r.freshProfile(ctx, result.Address)
	if err != nil {
		r.denyRole(ctx, result.Address, required, err)
		return fmt.Errorf("%w: role could not be confirmed", ErrPermissionDenied)
	}

	if profile.Role != required && profile.Role != RoleAdmin {
		r.denyRole(ctx, result.Address, required, nil)
		return ErrPermissionDenied
	}

	r.emitAudit(ctx, auditEventRoleCheck, result.Address, true, nil, func() map[string]string {
		return map[string]string{"required": required, "actual": profile.Role}
	})
	return nil
}

// freshProfile reads the registry for a privileged check. A caching
// authority is told to bypass its cache: a role the registry has revoked
// must not keep passing until the cache entry ages out.
func (r *Reconciler) freshProfile(ctx context.Context, address string) (chain.Profile, error) {
	if refresher, ok := r.chain.(chain.ProfileRefresher); ok {
		return refresher.FreshProfileOf(ctx, address)
	}
	return r.chain.ProfileOf(ctx, address)
}

func (r *Reconciler) denyRole(ctx context.Context, address, required string, cause error) {
	r.metrics.Inc(internalmetrics.MetricRoleCheckDenied)
	r.emitAudit(ctx, auditEventRoleCheck, address, false, cause, func() map[string]string {
		return map[string]string{"required": required}
	})
}

// IsAdmin reports whether the current identity holds the admin role,
// verified against the chain registry.
func (r *Reconciler) IsAdmin(ctx context.Context) bool {
	return r.RequireRole(ctx, RoleAdmin) == nil
}

// HasPermission answers a declarative UI gating question from the policy
// table. Pure lookup, default false; it performs no I/O and is not a
// substitute for [Reconciler.RequireRole] on privileged actions.
func (r *Reconciler) HasPermission(role, capability string) bool {
	if r == nil || r.policy == nil {
		return false
	}
	return r.policy.HasPermission(role, capability)
}

// Policy exposes the role table for visibility filtering.
func (r *Reconciler) Policy() *policy.Table {
	if r == nil {
		return nil
	}
	return r.policy
}

// SetPage records the tab's current location. The URL feeds audit events and
// the sensitive flag decides whether account changes reload the page instead
// of reconciling in place.
func (r *Reconciler) SetPage(url string, sensitive bool) {
	if r == nil {
		return
	}
	r.pageMu.Lock()
	r.pageURL = url
	r.pageSensitive = sensitive
	r.pageMu.Unlock()
}

func (r *Reconciler) currentPage() (string, bool) {
	r.pageMu.RLock()
	defer r.pageMu.RUnlock()
	return r.pageURL, r.pageSensitive
}

// TabID returns this reconciler's tab identity, as stamped on audit events.
func (r *Reconciler) TabID() string {
	if r == nil {
		return ""
	}
	return r.tabID
}

// ResetLoopGuard clears the consecutive-failure counter, as a successful
// manual login does implicitly.
func (r *Reconciler) ResetLoopGuard() {
	if r == nil {
		return
	}
	r.failures.Store(0)
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (r *Reconciler) MetricsSnapshot() MetricsSnapshot {
	return r.metrics.Snapshot()
}

// DroppedAuditEvents reports how many audit events were discarded on a full
// buffer.
func (r *Reconciler) DroppedAuditEvents() uint64 {
	if r == nil {
		return 0
	}
	return r.audit.Dropped()
}

// Close stops the event pump and drains the audit dispatcher. The Reconciler
// must not be used afterwards.
func (r *Reconciler) Close() {
	if r == nil {
		return
	}
	r.closeOnce.Do(func() {
		if r.pump != nil {
			r.pump.close()
		}
		r.audit.Close()
	})
}
