package walletgate

import (
	"fmt"
	"time"

	"github.com/scholarchain/walletgate/chain"
	"github.com/scholarchain/walletgate/internal"
	internalaudit "github.com/scholarchain/walletgate/internal/audit"
	internalmetrics "github.com/scholarchain/walletgate/internal/metrics"
	"github.com/scholarchain/walletgate/kv"
	"github.com/scholarchain/walletgate/policy"
	"github.com/scholarchain/walletgate/session"
	"github.com/scholarchain/walletgate/wallet"
)

// Builder assembles a [Reconciler]. Zero-value defaults: in-memory storage,
// the platform role table, metrics on, audit off.
type Builder struct {
	cfg       Config
	storage   kv.Store
	provider  wallet.Provider
	authority chain.Authority
	api       BackendAPI
	table     *policy.Table
	sink      AuditSink
	nowFn     func() time.Time
}

// New creates a Builder with default configuration.
func New() *Builder {
	return &Builder{cfg: defaultConfig()}
}

// WithConfig replaces the entire configuration. The config is cloned; later
// mutations by the caller have no effect.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cloneConfig(cfg)
	return b
}

// WithStorage sets the key-value backend holding the session record.
func (b *Builder) WithStorage(store kv.Store) *Builder {
	b.storage = store
	return b
}

// WithWallet sets the wallet provider.
func (b *Builder) WithWallet(provider wallet.Provider) *Builder {
	b.provider = provider
	return b
}

// WithChain sets the on-chain registry authority.
func (b *Builder) WithChain(authority chain.Authority) *Builder {
	b.authority = authority
	return b
}

// WithBackend sets the auth API client.
func (b *Builder) WithBackend(api BackendAPI) *Builder {
	b.api = api
	return b
}

// WithPolicy replaces the default role table.
func (b *Builder) WithPolicy(table *policy.Table) *Builder {
	b.table = table
	return b
}

// WithAuditSink enables auditing into the given sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	b.cfg.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.cfg.Metrics.Enabled = enabled
	return b
}

// withNow overrides the clock. Test hook only.
func (b *Builder) withNow(now func() time.Time) *Builder {
	b.nowFn = now
	return b
}

// Build validates the configuration and wires the Reconciler. The returned
// Reconciler owns its event pump and audit dispatcher; call
// [Reconciler.Close] when done.
func (b *Builder) Build() (*Reconciler, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("walletgate: invalid config: %w", err)
	}

	storage := b.storage
	if storage == nil {
		storage = kv.NewMemory()
	}
	table := b.table
	if table == nil {
		table = policy.DefaultTable()
	}
	nowFn := b.nowFn
	if nowFn == nil {
		nowFn = time.Now
	}

	r := &Reconciler{
		cfg:     b.cfg,
		store:   session.NewStore(storage, b.cfg.Session.RecordKey, b.cfg.Session.LegacyTokenKey),
		wallet:  wallet.NewSession(b.provider),
		chain:   b.authority,
		backend: b.api,
		policy:  table,
		metrics: internalmetrics.New(internalmetrics.Config{Enabled: b.cfg.Metrics.Enabled}),
		tabID:   internal.NewTabID(),
		now:     nowFn,
	}

	r.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    b.cfg.Audit.Enabled,
		BufferSize: b.cfg.Audit.BufferSize,
		DropIfFull: b.cfg.Audit.DropIfFull,
	}, b.sink)

	r.pump = newEventPump(r, b.cfg.Events.Debounce, b.cfg.Events.QueueSize)

	return r, nil
}
