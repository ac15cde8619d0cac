package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher decouples audit emission from the reconcile path: events queue
// onto a buffered channel and a single worker forwards them to the sink, so
// a slow sink can never stall a page-load reconcile or the event pump.
type Dispatcher struct {
	sink   Sink
	events chan Event
	stop   chan struct{}
	worker sync.WaitGroup

	// block selects backpressure over loss when DropIfFull is off.
	block   bool
	dropped atomic.Uint64
	closing atomic.Bool
	once    sync.Once
}

// NewDispatcher starts the forwarding worker. Returns nil when auditing is
// disabled; a nil Dispatcher is a no-op on every method.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:   sink,
		events: make(chan Event, size),
		stop:   make(chan struct{}),
		block:  !cfg.DropIfFull,
	}
	d.worker.Add(1)
	go d.forward()
	return d
}

func (d *Dispatcher) forward() {
	defer d.worker.Done()

	for {
		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
		case <-d.stop:
			d.flush()
			return
		}
	}
}

// flush delivers whatever Close found still queued, then returns. Events
// accepted before Close are never silently discarded.
func (d *Dispatcher) flush() {
	for {
		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit queues one event. Events without a timestamp are stamped here so
// sinks always see when the operation happened, not when it was forwarded.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closing.Load() {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.block {
		select {
		case d.events <- event:
		case <-ctx.Done():
		case <-d.stop:
		}
		return
	}

	select {
	case d.events <- event:
	case <-d.stop:
	default:
		d.dropped.Add(1)
	}
}

// Close stops accepting events, drains the queue into the sink, and waits
// for the worker to finish. Safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		d.worker.Wait()
	})
}

// Dropped reports how many events were discarded on a full buffer.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
