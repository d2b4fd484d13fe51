package bus

import "go.uber.org/atomic"

// port is a Switch's internal view of one attached endpoint.
type port[T any] struct {
	addr     Address
	isRouter bool
	tx       Tx[T]
	rx       Rx[T]
	// simplex is set once this port's Rx has closed while its Tx still has
	// live subscribers: the switch stops polling it but keeps sending to
	// it.
	simplex atomic.Bool
}
