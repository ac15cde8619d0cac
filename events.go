package walletgate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	internalmetrics "github.com/scholarchain/walletgate/internal/metrics"
	"github.com/scholarchain/walletgate/session"
	"github.com/scholarchain/walletgate/wallet"
)

// ReloadHook is invoked instead of an in-place reconcile when an account
// change lands on a sensitive page. It receives the page URL to reload.
type ReloadHook func(url string)

// eventPump serializes provider account-changed notifications through a
// bounded queue and a single consumer. Raw events can fire several times for
// one user action; everything inside the debounce window coalesces into one
// reconciliation, and only the last account list wins.
type eventPump struct {
	r        *Reconciler
	debounce time.Duration
	queue    chan []string
	done     chan struct{}
	wg       sync.WaitGroup
	closed   atomic.Bool

	hookMu sync.RWMutex
	hook   ReloadHook
}

func newEventPump(r *Reconciler, debounce time.Duration, queueSize int) *eventPump {
	p := &eventPump{
		r:        r,
		debounce: debounce,
		queue:    make(chan []string, queueSize),
		done:     make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *eventPump) run() {
	defer p.wg.Done()

	for {
		var accounts []string
		select {
		case accounts = <-p.queue:
		case <-p.done:
			return
		}

		if p.debounce > 0 {
			timer := time.NewTimer(p.debounce)
		coalesce:
			for {
				select {
				case next := <-p.queue:
					accounts = next
					p.r.metrics.Inc(internalmetrics.MetricEventCoalesced)
				case <-timer.C:
					break coalesce
				case <-p.done:
					timer.Stop()
					return
				}
			}
		}

		p.handle(accounts)
	}
}

func (p *eventPump) handle(accounts []string) {
	r := p.r
	r.wallet.Observe(accounts)

	url, sensitive := r.currentPage()
	ctx := WithPageURL(context.Background(), url)

	address := ""
	if len(accounts) > 0 {
		address = session.NormalizeAddress(accounts[0])
	}
	r.emitAudit(ctx, auditEventAccountSwap, address, true, nil, func() map[string]string {
		return map[string]string{"sensitive_page": boolString(sensitive)}
	})

	if sensitive && r.cfg.Events.ReloadSensitivePages {
		p.hookMu.RLock()
		hook := p.hook
		p.hookMu.RUnlock()
		if hook != nil {
			// A sensitive page gets a full reload so no stale per-page state
			// survives the identity switch.
			hook(url)
			return
		}
	}

	if _, err := r.Reconcile(ctx); err != nil {
		// Storage faults surface on the next foreground reconcile.
		return
	}
}

func (p *eventPump) close() {
	if p.closed.CompareAndSwap(false, true) {
		close(p.done)
		p.wg.Wait()
	}
}

// OnAccountsChanged feeds one provider notification into the pump. The call
// never blocks: on a full queue the event is dropped and counted, since a
// newer notification always supersedes older ones anyway.
func (r *Reconciler) OnAccountsChanged(accounts []string) error {
	if r == nil || r.pump == nil {
		return ErrReconcilerNotReady
	}
	if r.pump.closed.Load() {
		return ErrEventQueueClosed
	}

	select {
	case r.pump.queue <- accounts:
	default:
		r.metrics.Inc(internalmetrics.MetricEventDropped)
	}
	return nil
}

// AttachFeed pipes a wallet event feed into the pump until the feed closes.
// Returns when the feed's channel is closed.
func (r *Reconciler) AttachFeed(feed wallet.Feed) {
	if r == nil || feed == nil {
		return
	}
	for change := range feed.Changes() {
		if err := r.OnAccountsChanged(change.Accounts); err != nil {
			return
		}
	}
}

// SetReloadHook registers the sensitive-page reload callback.
func (r *Reconciler) SetReloadHook(hook ReloadHook) {
	if r == nil || r.pump == nil {
		return
	}
	r.pump.hookMu.Lock()
	r.pump.hook = hook
	r.pump.hookMu.Unlock()
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
