package bus

import "go.uber.org/atomic"

// Tx is the sending half of a split Endpoint. Send and SendPkt never
// block: with no live subscribers the packet is dropped (the caller may
// check ReceiverCount first if it cares).
type Tx[T any] struct {
	b    *broadcaster[T]
	side *atomic.Int64
}

// Send builds a locally-originated Packet{Val: val, Daddr: dst} and
// enqueues it. Reports whether any subscriber lagged (see SendPkt).
func (t Tx[T]) Send(dst Address, val T) bool {
	return t.SendPkt(NewPacket(dst, val))
}

// SendPkt enqueues pkt verbatim. Used directly by switch/router forwarding
// to preserve an already-tagged envelope. Reports whether any subscriber's
// buffer was full and missed this packet.
func (t Tx[T]) SendPkt(pkt Packet[T]) bool {
	return t.b.send(pkt)
}

// ReceiverCount reports the number of live subscribers on this direction.
// A Switch consults this when its Rx closes, to decide between removing
// the port outright and marking it simplex.
func (t Tx[T]) ReceiverCount() int {
	return t.b.receiverCount()
}

// Close drops this sending handle. When the last handle on this side
// closes, the peer's Rx observes Closed.
func (t Tx[T]) Close() {
	if t.side != nil && t.side.Dec() == 0 {
		t.b.closeAll()
	}
}
