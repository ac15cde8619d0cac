package walletgate

import (
	"context"
	"errors"
	"time"

	"github.com/scholarchain/walletgate/backend"
	"github.com/scholarchain/walletgate/chain"
	internalaudit "github.com/scholarchain/walletgate/internal/audit"
	"github.com/scholarchain/walletgate/wallet"
)

// Audit event types emitted by the reconciler.
const (
	auditEventReconcile   = "session.reconcile"
	auditEventLogin       = "session.login"
	auditEventLogout      = "session.logout"
	auditEventRegister    = "session.register"
	auditEventRoleCheck   = "session.role_check"
	auditEventLoopGuard   = "session.loop_guard"
	auditEventAccountSwap = "wallet.account_changed"
)

// AuditErrorCode maps an error chain to a stable code for audit records and
// API replies. Token material never appears in the returned string.
func AuditErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWalletUnavailable) || errors.Is(err, wallet.ErrProviderUnavailable):
		return "WALLET_UNAVAILABLE"
	case errors.Is(err, ErrAccessDenied) || errors.Is(err, wallet.ErrUserDeclined):
		return "ACCESS_DENIED"
	case errors.Is(err, ErrNoAccount) || errors.Is(err, wallet.ErrNoAccounts):
		return "NO_ACCOUNT"
	case errors.Is(err, ErrSessionExpired):
		return "SESSION_EXPIRED"
	case errors.Is(err, ErrTokenRejected) || errors.Is(err, backend.ErrTokenRejected):
		return "TOKEN_EXPIRED"
	case errors.Is(err, ErrAddressMismatch):
		return "ADDRESS_MISMATCH"
	case errors.Is(err, ErrNotRegistered) || errors.Is(err, chain.ErrNotRegistered):
		return "NOT_REGISTERED"
	case errors.Is(err, ErrInvalidCredentials) || errors.Is(err, backend.ErrLoginRejected):
		return "INVALID_CREDENTIALS"
	case errors.Is(err, ErrNetworkUnavailable),
		errors.Is(err, backend.ErrBackendUnavailable),
		errors.Is(err, chain.ErrChainUnavailable):
		return "NETWORK_ERROR"
	case errors.Is(err, ErrPermissionDenied):
		return "PERMISSION_DENIED"
	case errors.Is(err, ErrRoleUnknown):
		return "ROLE_UNKNOWN"
	case errors.Is(err, ErrReloadLoop):
		return "RELOAD_LOOP"
	default:
		return "INTERNAL"
	}
}

type metadataBuilder func() map[string]string

// emitAudit builds and dispatches one audit event. metadata is a closure so
// map allocation only happens when auditing is enabled.
func (r *Reconciler) emitAudit(ctx context.Context, eventType, address string, success bool, err error, metadata metadataBuilder) {
	if r.audit == nil {
		return
	}

	event := internalaudit.Event{
		Timestamp: time.Now(),
		EventType: eventType,
		Address:   address,
		TabID:     r.tabID,
		PageURL:   pageURLFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if err != nil {
		event.Error = AuditErrorCode(err)
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	r.audit.Emit(ctx, event)
}
