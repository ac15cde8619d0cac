package session

import (
	"strings"
	"time"
)

// CurrentSchemaVersion is written by Encode; older records are migrated on read.
const CurrentSchemaVersion = 2

// Session is the locally cached identity record linking the wallet address,
// the backend bearer token, and the cached on-chain role.
type Session struct {
	SchemaVersion int `json:"v"`

	// Address is the lowercase-normalized wallet account, the primary key
	// that all three identity sources must agree on.
	Address string `json:"address"`

	// Token is the opaque bearer credential issued by the backend at login.
	Token string `json:"token"`

	// Role is the cached on-chain role. Authorization-sensitive callers must
	// re-check it against the registry.
	Role string `json:"role"`

	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`

	// LoggedIn is true only after a full reconciliation succeeded.
	LoggedIn bool `json:"loggedIn"`

	// IssuedAt is the last-reconciled wall-clock time in unix seconds.
	IssuedAt int64 `json:"timestamp"`
}

// NormalizeAddress lowercases a wallet account identifier. All address
// comparisons in the module go through this.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Age returns the time elapsed since the session was last reconciled.
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(s.IssuedAt, 0))
}

// Fresh reports whether the session is within ttl at the given instant and
// carries a token. Address agreement is checked separately by the reconciler.
func (s *Session) Fresh(now time.Time, ttl time.Duration) bool {
	if s == nil || s.Token == "" {
		return false
	}
	return s.Age(now) <= ttl
}

// MatchesAccount reports whether the connected wallet account is the same
// identity as the session address, case-insensitively.
func (s *Session) MatchesAccount(account string) bool {
	if s == nil || s.Address == "" {
		return false
	}
	return NormalizeAddress(account) == NormalizeAddress(s.Address)
}
