package walletgate

import (
	"errors"
	"time"
)

// Config defines all reconciler tuning knobs. Instances are configured during
// initialization and treated as immutable afterwards.
type Config struct {
	Session   SessionConfig
	Reconcile ReconcileConfig
	Events    EventsConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// SessionConfig controls the local session record.
type SessionConfig struct {
	// TTL is the maximum session age before re-establishment is required.
	TTL time.Duration
	// RecordKey and LegacyTokenKey are the two fixed storage slots: the
	// structured record and the bare token kept for backward callers.
	RecordKey      string
	LegacyTokenKey string
}

// ReconcileConfig controls the state machine.
type ReconcileConfig struct {
	// VerifyWithBackend consults GET /api/me on routine reconciles. A 401/403
	// answer is authoritative; transport failures fall back to the cache.
	VerifyWithBackend bool
	// MaxConsecutiveFailures is the reload-loop guard budget per tab lifetime.
	MaxConsecutiveFailures int
}

// EventsConfig controls the account-changed event pump.
type EventsConfig struct {
	// Debounce is the minimum spacing between reconciliations triggered by
	// provider notifications. Events inside the window coalesce.
	Debounce time.Duration
	// QueueSize bounds the pending event queue; overflow is dropped and counted.
	QueueSize int
	// ReloadSensitivePages invokes the registered reload hook instead of an
	// in-place reconcile when the current page is marked sensitive.
	ReloadSensitivePages bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the configuration [New] starts from: 24 hour TTL,
// one second event debounce, a five-failure loop guard.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL:            24 * time.Hour,
			RecordKey:      "wg:session",
			LegacyTokenKey: "wg:token",
		},
		Reconcile: ReconcileConfig{
			VerifyWithBackend:      false,
			MaxConsecutiveFailures: 5,
		},
		Events: EventsConfig{
			Debounce:             time.Second,
			QueueSize:            16,
			ReloadSensitivePages: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// All fields are value types today; the copy is kept explicit so key
	// material or slices added later get deep-cloned here.
	return cfg
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.RecordKey == "" {
		return errors.New("Session RecordKey must be set")
	}
	if c.Session.LegacyTokenKey == "" {
		return errors.New("Session LegacyTokenKey must be set")
	}
	if c.Session.RecordKey == c.Session.LegacyTokenKey {
		return errors.New("Session RecordKey and LegacyTokenKey must differ")
	}
	if c.Reconcile.MaxConsecutiveFailures <= 0 {
		return errors.New("Reconcile MaxConsecutiveFailures must be > 0")
	}
	if c.Events.Debounce < 0 {
		return errors.New("Events Debounce must be >= 0")
	}
	if c.Events.QueueSize <= 0 {
		return errors.New("Events QueueSize must be > 0")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	return nil
}
