package bus

import (
	"context"
	"time"
)

// Rx is the receiving half of a split Endpoint: a subscription on the
// peer's broadcaster. All Recv* methods suspend (cooperatively, via ctx)
// until a packet is ready, the deadline expires, or the peer closes.
type Rx[T any] struct {
	b   *broadcaster[T]
	sub *subscriber[T]
}

// Close unsubscribes this Rx from its broadcaster. After Close, Recv
// returns any packets already buffered and then a KindClosed error. Close
// does not affect the peer's Tx: if other subscribers remain, sends to
// this direction keep reaching them (see the port simplex transition in
// Switch.handlePortClosed).
func (r Rx[T]) Close() {
	r.b.unsubscribe(r.sub)
}

// Recv blocks until a packet is available, ctx is done, or the peer is
// closed (all senders gone and the channel drained).
func (r Rx[T]) Recv(ctx context.Context) (Packet[T], error) {
	select {
	case pkt, ok := <-r.sub.ch:
		if !ok {
			return Packet[T]{}, newErr(KindClosed, "wire closed")
		}
		r.sub.drained.Inc()
		return pkt, nil
	case <-ctx.Done():
		return Packet[T]{}, wrapErr(KindTimeout, "recv canceled", ctx.Err())
	}
}

// RecvTimeout is Recv bounded by d.
func (r Rx[T]) RecvTimeout(ctx context.Context, d time.Duration) (Packet[T], error) {
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	pkt, err := r.Recv(tctx)
	if err != nil && tctx.Err() != nil && ctx.Err() == nil {
		return Packet[T]{}, wrapErr(KindTimeout, "recv timed out", tctx.Err())
	}
	return pkt, err
}

// RecvData is a convenience projection returning only the payload. Like
// RecvDataAddr, it fails with KindAddressError if the packet has no saddr.
func (r Rx[T]) RecvData(ctx context.Context) (T, error) {
	pkt, err := r.Recv(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if pkt.Saddr == nil {
		var zero T
		return zero, newErr(KindAddressError, "packet has no saddr")
	}
	return pkt.Val, nil
}

// RecvDataAddr is a convenience projection returning (val, saddr, daddr).
// It fails with KindAddressError if the packet has no saddr — per
// invariant, every packet that has passed through an ingress switch does.
func (r Rx[T]) RecvDataAddr(ctx context.Context) (T, Address, Address, error) {
	pkt, err := r.Recv(ctx)
	if err != nil {
		var zero T
		return zero, Address{}, Address{}, err
	}
	if pkt.Saddr == nil {
		var zero T
		return zero, Address{}, Address{}, newErr(KindAddressError, "packet has no saddr")
	}
	return pkt.Val, *pkt.Saddr, pkt.Daddr, nil
}

// RecvDataTimeout is RecvData bounded by d.
func (r Rx[T]) RecvDataTimeout(ctx context.Context, d time.Duration) (T, error) {
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	val, err := r.RecvData(tctx)
	if err != nil && tctx.Err() != nil && ctx.Err() == nil {
		var zero T
		return zero, wrapErr(KindTimeout, "recv timed out", tctx.Err())
	}
	return val, err
}

// RecvDataAddrTimeout is RecvDataAddr bounded by d.
func (r Rx[T]) RecvDataAddrTimeout(ctx context.Context, d time.Duration) (T, Address, Address, error) {
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	val, saddr, daddr, err := r.RecvDataAddr(tctx)
	if err != nil && tctx.Err() != nil && ctx.Err() == nil {
		var zero T
		return zero, Address{}, Address{}, wrapErr(KindTimeout, "recv timed out", tctx.Err())
	}
	return val, saddr, daddr, err
}

// LaggedCount reports how many packets this Rx has missed because its
// buffer was full when the broadcaster sent. It is informational only —
// the fabric never surfaces lag as an error to the caller.
func (r Rx[T]) LaggedCount() uint64 {
	return r.sub.lagged.Load()
}
