package bus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type pendingPort[T any] struct {
	addr     Address
	endpoint Endpoint[T]
	isRouter bool
}

// SwitchBuilder assembles a Switch by attaching endpoints at addresses,
// optionally marking some as routers, selecting a mode, and naming it.
// See spec.md §4.3 "Builder contract".
type SwitchBuilder[T any] struct {
	name     string
	mode     Mode
	gateway  Address
	pending  []pendingPort[T]
	registry prometheus.Registerer
	logger   *logrus.Entry
}

// NewSwitchBuilder starts a Switch builder. Default mode is ModeLocal, per
// spec.md §6 "Configuration surface".
func NewSwitchBuilder[T any]() *SwitchBuilder[T] {
	return &SwitchBuilder[T]{mode: ModeLocal}
}

// SetName sets the switch's human-readable name.
func (b *SwitchBuilder[T]) SetName(name string) *SwitchBuilder[T] {
	b.name = name
	return b
}

// SetModeLocal selects ModeLocal (the default): unknown-destination,
// locally-originated packets are dropped.
func (b *SwitchBuilder[T]) SetModeLocal() *SwitchBuilder[T] {
	b.mode = ModeLocal
	return b
}

// SetModeBroadcast selects ModeBroadcast: unknown-destination,
// locally-originated packets fan out to every router port.
func (b *SwitchBuilder[T]) SetModeBroadcast() *SwitchBuilder[T] {
	b.mode = ModeBroadcast
	return b
}

// SetModeGateway selects ModeGateway(addr): unknown-destination,
// locally-originated packets are sent to exactly one router port, addr.
// Validated against the attached router ports at Done().
func (b *SwitchBuilder[T]) SetModeGateway(addr Address) *SwitchBuilder[T] {
	b.mode = ModeGateway
	b.gateway = addr
	return b
}

// WithRegisterer registers this switch's packet/lag counters against reg.
// Optional; with a nil (or never-called) registerer the counters are still
// kept but registered nowhere, so nothing is exported.
func (b *SwitchBuilder[T]) WithRegisterer(reg prometheus.Registerer) *SwitchBuilder[T] {
	b.registry = reg
	return b
}

// WithLogger overrides the base logrus entry this switch logs through.
// Defaults to logrus.StandardLogger() if unset.
func (b *SwitchBuilder[T]) WithLogger(log *logrus.Entry) *SwitchBuilder[T] {
	b.logger = log
	return b
}

// Attach records a plain data-port endpoint to install at addr.
func (b *SwitchBuilder[T]) Attach(addr Address, ep Endpoint[T]) *SwitchBuilder[T] {
	b.pending = append(b.pending, pendingPort[T]{addr: addr, endpoint: ep})
	return b
}

// AttachRouter records a router-flagged port endpoint to install at addr.
func (b *SwitchBuilder[T]) AttachRouter(addr Address, ep Endpoint[T]) *SwitchBuilder[T] {
	b.pending = append(b.pending, pendingPort[T]{addr: addr, endpoint: ep, isRouter: true})
	return b
}

// Done validates and constructs the Switch. Invalid port addresses,
// address collisions, or a gateway mode pointing at a non-router/missing
// address all surface here as the kinds spec.md §7 names.
func (b *SwitchBuilder[T]) Done() (*Switch[T], error) {
	ctrlSwitchSide, ctrlExternalSide := NewWire[ControlMsg[T]]()
	ctrlTx, ctrlRx := ctrlSwitchSide.Split()

	log := b.logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	s := &Switch[T]{
		id:              NewDevId(),
		name:            b.name,
		mode:            b.mode,
		gateway:         b.gateway,
		ports:           make(map[Address]*port[T]),
		routerAddrs:     make(map[Address]struct{}),
		controlTx:       ctrlTx,
		controlRx:       ctrlRx,
		controlEndpoint: ctrlExternalSide,
	}
	s.log = log.WithField("switch", s.String())
	s.metrics = newSwitchMetrics(b.registry)

	for _, pp := range b.pending {
		if err := s.attach(pp.addr, pp.endpoint, pp.isRouter); err != nil {
			return nil, err
		}
	}

	if b.mode == ModeGateway {
		if !b.gateway.IsNamed() {
			return nil, newErr(KindAddressInvalid, "gateway address must be Named")
		}
		s.mu.RLock()
		p, ok := s.ports[b.gateway]
		s.mu.RUnlock()
		if !ok || !p.isRouter {
			return nil, newErr(KindAddressInvalid, "gateway address must already be attached as a router port")
		}
	}

	return s, nil
}
