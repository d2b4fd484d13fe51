package bus

import (
	"sync"

	"go.uber.org/atomic"
)

// DefaultBufferCapacity is the default per-subscriber buffer depth (K in
// spec terms) for a broadcaster. Small and fixed, per design: producers
// never block, a subscriber that falls more than K packets behind loses
// the overflow rather than stalling the producer.
const DefaultBufferCapacity = 16

// broadcaster fans a Packet out to every currently registered subscriber.
// It generalizes the teacher's endpointStreamDispatcher (one bounded
// channel, non-blocking enqueue, counted overflow) from a single stream to
// N independent subscriber channels.
type broadcaster[T any] struct {
	capacity int

	mu     sync.Mutex
	subs   map[*subscriber[T]]struct{}
	closed bool
}

type subscriber[T any] struct {
	ch      chan Packet[T]
	lagged  atomic.Uint64
	drained atomic.Uint64
}

func newBroadcaster[T any](capacity int) *broadcaster[T] {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &broadcaster[T]{
		capacity: capacity,
		subs:     make(map[*subscriber[T]]struct{}),
	}
}

func (b *broadcaster[T]) subscribe() *subscriber[T] {
	s := &subscriber[T]{ch: make(chan Packet[T], b.capacity)}
	b.mu.Lock()
	if !b.closed {
		b.subs[s] = struct{}{}
	} else {
		close(s.ch)
	}
	b.mu.Unlock()
	return s
}

func (b *broadcaster[T]) unsubscribe(s *subscriber[T]) {
	b.mu.Lock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.ch)
	}
	b.mu.Unlock()
}

// receiverCount reports the number of live subscribers.
func (b *broadcaster[T]) receiverCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// send fans pkt out to every live subscriber with a non-blocking send. A
// subscriber whose buffer is full is counted as lagged for that packet and
// simply misses it; the producer never blocks. Sending with zero
// subscribers is a silent no-op (logged at trace by the caller, if it
// wishes). send reports whether any subscriber lagged on this call, so a
// caller with port/switch context (see Switch.sendToPort) can log and
// count the drop.
func (b *broadcaster[T]) send(pkt Packet[T]) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	lagged := false
	for s := range b.subs {
		select {
		case s.ch <- pkt.clone():
		default:
			s.lagged.Inc()
			lagged = true
		}
	}
	return lagged
}

// closeAll closes every subscriber channel and marks the broadcaster
// closed; further subscribe calls return an already-closed subscriber.
// Called when the side that sends into this broadcaster has no live
// handles left (see Tx.Close / Endpoint.Close).
func (b *broadcaster[T]) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		close(s.ch)
	}
	b.subs = make(map[*subscriber[T]]struct{})
}

// Wire is a pair of bounded broadcast channels, one per direction, shared
// by the two peer Endpoints constructed over it. Each direction has its
// own sender-side reference count: when the last live handle on a side
// closes, that side's outbound broadcaster closes too, so the peer's Rx
// observes Closed — the idiomatic-Go stand-in for Rust's Drop-triggered
// wire teardown.
type Wire[T any] struct {
	id  DevId
	a2b *broadcaster[T]
	b2a *broadcaster[T]
}

// NewWire constructs a wire with the default buffer capacity and returns
// its two peer endpoints.
func NewWire[T any]() (Endpoint[T], Endpoint[T]) {
	return NewWireCapacity[T](DefaultBufferCapacity)
}

// NewWireCapacity is NewWire with an explicit per-direction subscriber
// buffer capacity, primarily useful in tests that want to force lag.
func NewWireCapacity[T any](capacity int) (Endpoint[T], Endpoint[T]) {
	w := &Wire[T]{
		id:  NewDevId(),
		a2b: newBroadcaster[T](capacity),
		b2a: newBroadcaster[T](capacity),
	}
	ep1 := Endpoint[T]{wire: w, out: w.a2b, in: w.b2a, side: atomic.NewInt64(1)}
	ep2 := Endpoint[T]{wire: w, out: w.b2a, in: w.a2b, side: atomic.NewInt64(1)}
	return ep1, ep2
}

// Endpoint is a clonable handle over one side of a Wire: it supplies a
// sender (out) and a subscribable receiver (in).
type Endpoint[T any] struct {
	wire *Wire[T]
	out  *broadcaster[T]
	in   *broadcaster[T]
	side *atomic.Int64
}

// ID reports the DevId of the underlying wire; both peer endpoints share
// it.
func (e Endpoint[T]) ID() DevId { return e.wire.id }

// Clone returns another handle over the same wire and side.
func (e Endpoint[T]) Clone() Endpoint[T] {
	e.side.Inc()
	return e
}

// Close drops this handle. Once every handle derived from one original
// side (through Clone and/or Split) has been closed, that side's outbound
// broadcaster closes, and the peer's Rx observes Closed.
func (e Endpoint[T]) Close() {
	if e.side.Dec() == 0 {
		e.out.closeAll()
	}
}

// Split consumes this endpoint handle and returns a Tx/Rx pair: a sender
// on this endpoint's outbound direction, and a fresh subscriber on the
// peer's outbound direction (this endpoint's inbound). The returned Tx
// inherits this handle's close responsibility.
func (e Endpoint[T]) Split() (Tx[T], Rx[T]) {
	tx := Tx[T]{b: e.out, side: e.side}
	rx := Rx[T]{b: e.in, sub: e.in.subscribe()}
	return tx, rx
}
