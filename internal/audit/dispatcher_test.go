package audit

import (
	"context"
	"sync"
	"testing"
	"time"
)

type collectingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *collectingSink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *collectingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// gatedSink blocks deliveries until the gate opens, simulating a slow sink.
type gatedSink struct {
	gate chan struct{}
	collectingSink
}

func (s *gatedSink) Emit(ctx context.Context, event Event) {
	<-s.gate
	s.collectingSink.Emit(ctx, event)
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false, BufferSize: 8}, &collectingSink{})
	if d != nil {
		t.Fatal("disabled config should produce a nil dispatcher")
	}

	// Every method must be a safe no-op on nil.
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Error("nil Dropped() != 0")
	}
}

func TestCloseDrainsQueuedEvents(t *testing.T) {
	sink := &collectingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), Event{EventType: "session.reconcile"})
	}
	d.Close()

	if got := sink.count(); got != 3 {
		t.Fatalf("delivered %d events, want 3: accepted events must survive Close", got)
	}
	if d.Dropped() != 0 {
		t.Errorf("dropped = %d, want 0", d.Dropped())
	}
}

func TestEmitStampsMissingTimestamp(t *testing.T) {
	sink := &collectingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	d.Emit(context.Background(), Event{EventType: "session.login"})
	d.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 1 || sink.events[0].Timestamp.IsZero() {
		t.Fatalf("events = %+v, want one event with a stamped timestamp", sink.events)
	}
}

func TestEmitPreservesExplicitTimestamp(t *testing.T) {
	sink := &collectingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	at := time.Unix(1_700_000_000, 0)
	d.Emit(context.Background(), Event{EventType: "session.logout", Timestamp: at})
	d.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 1 || !sink.events[0].Timestamp.Equal(at) {
		t.Fatalf("events = %+v, want the caller's timestamp preserved", sink.events)
	}
}

func TestDropIfFullCountsInsteadOfBlocking(t *testing.T) {
	sink := &gatedSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	const emitted = 8
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < emitted; i++ {
			d.Emit(context.Background(), Event{EventType: "session.reconcile"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked despite DropIfFull")
	}

	close(sink.gate)
	d.Close()

	delivered := sink.count()
	dropped := int(d.Dropped())
	if delivered+dropped != emitted {
		t.Fatalf("delivered %d + dropped %d != emitted %d", delivered, dropped, emitted)
	}
	// At most one event in flight and one buffered while the sink is gated.
	if dropped < emitted-2 {
		t.Errorf("dropped = %d, want >= %d with a gated sink", dropped, emitted-2)
	}
}

func TestEmitAfterClose(t *testing.T) {
	sink := &collectingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Close()

	d.Emit(context.Background(), Event{EventType: "session.login"})
	if got := sink.count(); got != 0 {
		t.Fatalf("delivered %d events after Close, want 0", got)
	}

	d.Close() // second Close is a no-op
}
