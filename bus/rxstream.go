package bus

import "context"

// RxStream wraps an Rx as a lazy pull-based sequence of (val, saddr,
// daddr) triples. Lag is invisible to the stream: a dropped packet is
// simply never yielded. The stream ends (Next returns ok=false) once the
// peer closes.
type RxStream[T any] struct {
	rx Rx[T]
}

// NewRxStream adapts rx into a pull-based stream.
func NewRxStream[T any](rx Rx[T]) *RxStream[T] {
	return &RxStream[T]{rx: rx}
}

// Next blocks for the next item. ok is false once the underlying wire has
// closed; err is non-nil only on ctx cancellation.
func (s *RxStream[T]) Next(ctx context.Context) (val T, saddr, daddr Address, ok bool, err error) {
	pkt, rerr := s.rx.Recv(ctx)
	if rerr != nil {
		if IsClosed(rerr) {
			var zero T
			return zero, Address{}, Address{}, false, nil
		}
		var zero T
		return zero, Address{}, Address{}, false, rerr
	}
	var src Address
	if pkt.Saddr != nil {
		src = *pkt.Saddr
	}
	return pkt.Val, src, pkt.Daddr, true, nil
}

// Close releases the underlying Rx subscription.
func (s *RxStream[T]) Close() {
	s.rx.Close()
}
