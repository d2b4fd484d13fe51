package domain

import (
	"github.com/linkerd/fabricd/bus"
)

// AddSwitch creates a Switch[T] in Broadcast mode — spec.md §4.5's stated
// default — and adds it to d as a node. Returns a handle used by
// AddEndpoint and JoinSwitches to address this switch without the caller
// threading T through the Domain's own (non-generic) type.
func AddSwitch[T any](d *Domain, name string) (SwitchHandler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sw, err := bus.NewSwitchBuilder[T]().
		SetName(name).
		SetModeBroadcast().
		WithRegisterer(d.reg).
		Done()
	if err != nil {
		return SwitchHandler{}, err
	}
	idx := d.addNode(node{kind: nodeSwitch, id: sw.ID(), name: name, device: sw, runner: sw})
	return SwitchHandler{idx: idx, id: sw.ID()}, nil
}

// AddEndpoint creates a wire, attaches one of its endpoints to the switch
// identified by h at addr, adds an EndpointMarker(addr) node connected to
// the switch, and returns the peer endpoint to the caller — spec.md §4.5.
func AddEndpoint[T any](d *Domain, h SwitchHandler, addr bus.Address) (bus.Endpoint[T], error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.invalidHandler(h.idx) {
		return bus.Endpoint[T]{}, invalidHandlerErr(h)
	}
	n := &d.nodes[h.idx]
	if n.kind != nodeSwitch {
		return bus.Endpoint[T]{}, handlerIsNotSwitchErr(h)
	}
	sw, ok := n.device.(*bus.Switch[T])
	if !ok {
		return bus.Endpoint[T]{}, typeMismatchErr(h)
	}

	switchSide, externalSide := bus.NewWireCapacity[T](d.wireCapacity())
	if err := sw.Attach(addr, switchSide); err != nil {
		return bus.Endpoint[T]{}, err
	}

	markerIdx := d.addNode(node{kind: nodeEndpointMarker, addr: addr})
	d.addEdge(h.idx, markerIdx)
	return externalSide, nil
}

// JoinSwitches creates a U-typed wire and a V-typed wire, attaches the
// U-side to switch0 and the V-side to switch1 as router-flagged ports at
// routerName, and builds a Router[U,V] over their peer endpoints —
// spec.md §4.5. toV/toU are the Router's required conversion functions;
// without them there is no way to construct the Router[U,V] the switches
// are being joined by, so JoinSwitches takes them directly rather than
// deferring to some implicit registry.
//
// A type mismatch on either handle fails with TypeMismatch. An attach
// failure on either switch, or a Router builder failure, propagates as
// SwitchJoinError.
func JoinSwitches[U, V any](d *Domain, switch0, switch1 SwitchHandler, routerName string, toV func(U) V, toU func(V) U) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.invalidHandler(switch0.idx) {
		return invalidHandlerErr(switch0)
	}
	if d.invalidHandler(switch1.idx) {
		return invalidHandlerErr(switch1)
	}
	n0 := &d.nodes[switch0.idx]
	n1 := &d.nodes[switch1.idx]
	if n0.kind != nodeSwitch || n1.kind != nodeSwitch {
		return handlerIsNotSwitchErr(switch0)
	}
	sw0, ok := n0.device.(*bus.Switch[U])
	if !ok {
		return typeMismatchErr(switch0)
	}
	sw1, ok := n1.device.(*bus.Switch[V])
	if !ok {
		return typeMismatchErr(switch1)
	}

	addr := bus.Named(routerName)
	uSwitchSide, uRouterSide := bus.NewWireCapacity[U](d.wireCapacity())
	vSwitchSide, vRouterSide := bus.NewWireCapacity[V](d.wireCapacity())

	if err := sw0.AttachRouter(addr, uSwitchSide); err != nil {
		return switchJoinErr(err)
	}
	if err := sw1.AttachRouter(addr, vSwitchSide); err != nil {
		return switchJoinErr(err)
	}

	router, err := bus.NewRouterBuilder[U, V]().
		SetName(routerName).
		SetEndpoint0(uRouterSide).
		SetEndpoint1(vRouterSide).
		SetConversions(toV, toU).
		Done()
	if err != nil {
		return switchJoinErr(err)
	}

	routerIdx := d.addNode(node{kind: nodeRouter, id: router.ID(), name: routerName, device: router, runner: router})
	ep0Idx := d.addNode(node{kind: nodeEndpointMarker, addr: addr})
	ep1Idx := d.addNode(node{kind: nodeEndpointMarker, addr: addr})
	d.addEdge(switch0.idx, ep0Idx)
	d.addEdge(ep0Idx, routerIdx)
	d.addEdge(routerIdx, ep1Idx)
	d.addEdge(ep1Idx, switch1.idx)
	return nil
}
