package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Mode selects a Switch's route policy for a locally-originated packet
// whose destination isn't a known port (spec.md §4.3 "Route policy").
type Mode uint8

const (
	// ModeLocal drops locally-originated, unknown-destination packets.
	// This is the builder default.
	ModeLocal Mode = iota
	// ModeBroadcast fans a locally-originated, unknown-destination packet
	// out to every router port.
	ModeBroadcast
	// ModeGateway directs a locally-originated, unknown-destination packet
	// to exactly one router port.
	ModeGateway
)

type eventKind uint8

const (
	evtData eventKind = iota
	evtClosed
	evtControl
)

type switchEvent[T any] struct {
	kind eventKind
	port Address
	pkt  Packet[T]
	ctrl Packet[ControlMsg[T]]
}

// Switch is a multi-port, address-multiplexed hub. See spec.md §4.3 for
// the full switching/route policy this implements.
type Switch[T any] struct {
	id      DevId
	name    string
	mode    Mode
	gateway Address
	log     *logrus.Entry
	metrics *switchMetrics

	mu          sync.RWMutex
	ports       map[Address]*port[T]
	routerAddrs map[Address]struct{}

	controlTx       Tx[ControlMsg[T]]
	controlRx       Rx[ControlMsg[T]]
	controlEndpoint Endpoint[ControlMsg[T]]

	events chan switchEvent[T]
	eg     errgroup.Group
}

// ID reports the switch's DevId.
func (s *Switch[T]) ID() DevId { return s.id }

// String renders the switch's name, falling back to its DevId when no name
// was set — mirroring original_source/bus/src/switch.rs's Display impl.
func (s *Switch[T]) String() string {
	if s.name != "" {
		return s.name
	}
	return s.id.String()
}

// ControlEndpoint returns the external peer of this switch's control wire.
// Wrap it with NewSwitchCtrl to issue requests.
func (s *Switch[T]) ControlEndpoint() Endpoint[ControlMsg[T]] {
	return s.controlEndpoint.Clone()
}

// Attach installs a non-router port. Per spec.md §4.3 this mirrors the
// builder's validation exactly; it is meant to be called either before Run
// has started any goroutine (the builder, or a Domain assembling a graph)
// or from within the switch's own polling loop in response to a control
// request — never concurrently with Run from an external goroutine.
func (s *Switch[T]) Attach(addr Address, ep Endpoint[T]) error {
	return s.attach(addr, ep, false)
}

// AttachRouter installs a router port. See Attach.
func (s *Switch[T]) AttachRouter(addr Address, ep Endpoint[T]) error {
	return s.attach(addr, ep, true)
}

func (s *Switch[T]) attach(addr Address, ep Endpoint[T], isRouter bool) error {
	if addr.IsBroadcast() {
		return newErr(KindAddressInvalid, "cannot attach Broadcast as a port address")
	}
	if addr.IsP2P() {
		return newErr(KindAddressInvalid, "cannot attach P2P as a port address")
	}
	tx, rx := ep.Split()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ports[addr]; exists {
		return newErr(KindAddressInUsed, fmt.Sprintf("address %s already attached", addr))
	}
	s.ports[addr] = &port[T]{addr: addr, isRouter: isRouter, tx: tx, rx: rx}
	if isRouter {
		s.routerAddrs[addr] = struct{}{}
	}
	return nil
}

// sendToPort sends pkt out p's outbound direction and, if the port's
// external subscriber was too far behind to take it, counts the drop
// against fabric_switch_lag_total{switch,port} and logs it at trace. Read
// from the sending side, since that's where the switch knows which port
// just dropped.
func (s *Switch[T]) sendToPort(addr Address, p *port[T], pkt Packet[T]) {
	if p.tx.SendPkt(pkt) {
		s.metrics.incLag(s.String(), addr.String())
		s.log.WithField("port", addr).Trace("port's subscriber buffer was full, packet dropped")
	}
}

func (s *Switch[T]) allRouterAddrs() []Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Address, 0, len(s.routerAddrs))
	for a := range s.routerAddrs {
		out = append(out, a)
	}
	return out
}

// Run drives the switch's polling loop until ctx is done. It is the
// "device poller future" a Domain schedules. Run is safe to call exactly
// once per Switch.
func (s *Switch[T]) Run(ctx context.Context) error {
	s.events = make(chan switchEvent[T])

	s.mu.RLock()
	for addr, p := range s.ports {
		s.spawnPort(ctx, addr, p)
	}
	s.mu.RUnlock()
	s.spawnControl(ctx)

	for {
		select {
		case <-ctx.Done():
			_ = s.eg.Wait()
			return nil
		case ev := <-s.events:
			s.handleEvent(ctx, ev)
		}
	}
}

func (s *Switch[T]) spawnPort(ctx context.Context, addr Address, p *port[T]) {
	s.eg.Go(func() error {
		for {
			pkt, err := p.rx.Recv(ctx)
			if err != nil {
				select {
				case s.events <- switchEvent[T]{kind: evtClosed, port: addr}:
				case <-ctx.Done():
				}
				return nil
			}
			select {
			case s.events <- switchEvent[T]{kind: evtData, port: addr, pkt: pkt}:
			case <-ctx.Done():
				return nil
			}
		}
	})
}

func (s *Switch[T]) spawnControl(ctx context.Context) {
	s.eg.Go(func() error {
		for {
			pkt, err := s.controlRx.Recv(ctx)
			if err != nil {
				return nil
			}
			select {
			case s.events <- switchEvent[T]{kind: evtControl, ctrl: pkt}:
			case <-ctx.Done():
				return nil
			}
		}
	})
}

func (s *Switch[T]) handleEvent(ctx context.Context, ev switchEvent[T]) {
	switch ev.kind {
	case evtData:
		s.handleData(ev.port, ev.pkt)
	case evtClosed:
		s.handlePortClosed(ev.port)
	case evtControl:
		s.handleControl(ctx, ev.ctrl)
	}
}

// handleData implements tagging (spec.md §4.3 "Tagging") followed by the
// switching decision.
func (s *Switch[T]) handleData(ingress Address, pkt Packet[T]) {
	s.mu.RLock()
	ip, ok := s.ports[ingress]
	s.mu.RUnlock()
	if !ok {
		return
	}
	if ip.isRouter {
		pkt.RtInfo = &RouteInfo{LastHop: ingress}
	} else {
		a := ingress
		pkt.Saddr = &a
	}
	s.switchPacket(ingress, pkt)
}

func (s *Switch[T]) switchPacket(ingress Address, pkt Packet[T]) {
	switch pkt.Daddr.Kind() {
	case AddressP2P:
		s.metrics.incResult(s.String(), "dropped_p2p")
		return
	case AddressBroadcast:
		s.broadcastExcept(ingress, pkt)
		s.metrics.incResult(s.String(), "broadcast")
	default:
		s.mu.RLock()
		dest, ok := s.ports[pkt.Daddr]
		s.mu.RUnlock()
		if ok {
			s.sendToPort(pkt.Daddr, dest, pkt)
			s.metrics.incResult(s.String(), "unicast")
			return
		}
		s.route(pkt)
	}
}

func (s *Switch[T]) broadcastExcept(ingress Address, pkt Packet[T]) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for addr, p := range s.ports {
		if addr.Equal(ingress) {
			continue
		}
		s.sendToPort(addr, p, pkt.clone())
	}
}

// route implements spec.md §4.3 "Route policy", including last-hop
// exclusion to prevent re-echoing a packet back out the router it arrived
// through.
func (s *Switch[T]) route(pkt Packet[T]) {
	var candidates []Address
	if pkt.RtInfo == nil {
		switch s.mode {
		case ModeGateway:
			candidates = []Address{s.gateway}
		case ModeBroadcast:
			candidates = s.allRouterAddrs()
		case ModeLocal:
			s.metrics.incResult(s.String(), "dropped_no_route")
			return
		}
	} else {
		last := pkt.RtInfo.LastHop
		for _, a := range s.allRouterAddrs() {
			if !a.Equal(last) {
				candidates = append(candidates, a)
			}
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	sent := false
	for _, addr := range candidates {
		p, ok := s.ports[addr]
		if !ok || !p.isRouter {
			s.log.Warnf("bug: route candidate %s is not an attached router port", addr)
			continue
		}
		s.sendToPort(addr, p, pkt.clone())
		sent = true
	}
	if sent {
		s.metrics.incResult(s.String(), "routed")
	} else {
		s.metrics.incResult(s.String(), "dropped_no_route")
	}
}

// handlePortClosed implements spec.md §4.3/§9's port-lifecycle-on-close:
// remove the port outright if no subscribers remain on its outbound
// direction, otherwise mark it simplex.
func (s *Switch[T]) handlePortClosed(addr Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.ports[addr]
	if !ok {
		return
	}
	if p.tx.ReceiverCount() == 0 {
		delete(s.ports, addr)
		delete(s.routerAddrs, addr)
		return
	}
	p.simplex.Store(true)
}

func (s *Switch[T]) handleControl(ctx context.Context, ctrlPkt Packet[ControlMsg[T]]) {
	msg := ctrlPkt.Val
	switch msg.kind {
	case ctrlCreateEndpointReq:
		switchSide, externalSide := NewWire[T]()
		if err := s.Attach(msg.addr, switchSide); err != nil {
			s.controlTx.Send(P2P, ControlMsg[T]{kind: ctrlErrResp, err: err})
			return
		}
		s.mu.RLock()
		p := s.ports[msg.addr]
		s.mu.RUnlock()
		s.spawnPort(ctx, msg.addr, p)
		s.controlTx.Send(P2P, ControlMsg[T]{kind: ctrlCreateEndpointResp, endpoint: &externalSide})
	default:
		s.log.Warnf("bug: unexpected control request kind %v", msg.kind)
	}
}
