package bus

import "context"

type ctrlKind uint8

const (
	ctrlCreateEndpointReq ctrlKind = iota
	ctrlCreateEndpointResp
	ctrlErrResp
)

// ControlMsg is the payload type carried on a Switch's dedicated control
// wire. Requests and responses are correlated by order: a SwitchCtrl
// handle must not issue a second request before it has received the
// response to the first, the same way the teacher's single-stream
// request/response helpers are used one call at a time.
type ControlMsg[T any] struct {
	kind     ctrlKind
	addr     Address
	endpoint *Endpoint[T]
	err      error
}

// SwitchCtrl is a clonable handle used by external actors to issue control
// requests against a running Switch: today, dynamic endpoint creation.
type SwitchCtrl[T any] struct {
	tx Tx[ControlMsg[T]]
	rx Rx[ControlMsg[T]]
}

// NewSwitchCtrl splits ep (typically obtained from Switch.ControlEndpoint)
// into the Tx/Rx pair this handle uses for its lifetime.
func NewSwitchCtrl[T any](ep Endpoint[ControlMsg[T]]) SwitchCtrl[T] {
	tx, rx := ep.Split()
	return SwitchCtrl[T]{tx: tx, rx: rx}
}

// AddEndpoint requests that the switch attach a fresh endpoint at addr and
// returns the peer side. It behaves identically, from the caller's
// perspective, to having statically attached that endpoint through the
// switch's builder (testable property 7 in spec.md §8).
func (c SwitchCtrl[T]) AddEndpoint(ctx context.Context, addr Address) (Endpoint[T], error) {
	c.tx.Send(P2P, ControlMsg[T]{kind: ctrlCreateEndpointReq, addr: addr})
	pkt, err := c.rx.Recv(ctx)
	if err != nil {
		return Endpoint[T]{}, err
	}
	resp := pkt.Val
	switch resp.kind {
	case ctrlCreateEndpointResp:
		return *resp.endpoint, nil
	case ctrlErrResp:
		return Endpoint[T]{}, resp.err
	default:
		return Endpoint[T]{}, newErr(KindUnknownCtrlErr, "unexpected control response variant")
	}
}

// Close releases this handle's control-wire subscription.
func (c SwitchCtrl[T]) Close() {
	c.rx.Close()
}
