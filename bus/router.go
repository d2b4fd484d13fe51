package bus

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Router is a transparent L2 bridge between two switches of differing
// payload types U and V. It performs no addressing logic: it forwards
// each received packet to the opposite side after converting its payload,
// preserving Daddr/Saddr/RtInfo verbatim (spec.md §4.4).
type Router[U, V any] struct {
	id   DevId
	name string
	log  *logrus.Entry

	u2v func(U) V
	v2u func(V) U

	txU Tx[U]
	rxU Rx[U]
	txV Tx[V]
	rxV Rx[V]

	eg errgroup.Group
}

// ID reports the router's DevId.
func (r *Router[U, V]) ID() DevId { return r.id }

func (r *Router[U, V]) String() string {
	if r.name != "" {
		return r.name
	}
	return r.id.String()
}

// Run drives the router's forwarding loop until ctx is done.
func (r *Router[U, V]) Run(ctx context.Context) error {
	r.eg.Go(func() error {
		for {
			pkt, err := r.rxU.Recv(ctx)
			if err != nil {
				return nil
			}
			r.txV.SendPkt(ConvertPacket(pkt, r.u2v))
		}
	})
	r.eg.Go(func() error {
		for {
			pkt, err := r.rxV.Recv(ctx)
			if err != nil {
				return nil
			}
			r.txU.SendPkt(ConvertPacket(pkt, r.v2u))
		}
	})

	<-ctx.Done()
	_ = r.eg.Wait()
	return nil
}

// RouterBuilder assembles a Router. See spec.md §4.4.
type RouterBuilder[U, V any] struct {
	name string
	epU  *Endpoint[U]
	epV  *Endpoint[V]
	u2v  func(U) V
	v2u  func(V) U
	log  *logrus.Entry
}

// NewRouterBuilder starts a Router builder.
func NewRouterBuilder[U, V any]() *RouterBuilder[U, V] {
	return &RouterBuilder[U, V]{}
}

// SetName sets the router's human-readable name.
func (b *RouterBuilder[U, V]) SetName(name string) *RouterBuilder[U, V] {
	b.name = name
	return b
}

// SetEndpoint0 sets the U-typed side.
func (b *RouterBuilder[U, V]) SetEndpoint0(ep Endpoint[U]) *RouterBuilder[U, V] {
	b.epU = &ep
	return b
}

// SetEndpoint1 sets the V-typed side.
func (b *RouterBuilder[U, V]) SetEndpoint1(ep Endpoint[V]) *RouterBuilder[U, V] {
	b.epV = &ep
	return b
}

// SetConversions sets the bidirectional payload conversion functions.
func (b *RouterBuilder[U, V]) SetConversions(u2v func(U) V, v2u func(V) U) *RouterBuilder[U, V] {
	b.u2v = u2v
	b.v2u = v2u
	return b
}

// WithLogger overrides the base logrus entry this router logs through.
func (b *RouterBuilder[U, V]) WithLogger(log *logrus.Entry) *RouterBuilder[U, V] {
	b.log = log
	return b
}

// Done validates and constructs the Router.
func (b *RouterBuilder[U, V]) Done() (*Router[U, V], error) {
	if b.epU == nil || b.epV == nil {
		return nil, newErr(KindBuildError, "router requires both endpoints")
	}
	if b.u2v == nil || b.v2u == nil {
		return nil, newErr(KindBuildError, "router requires both conversion functions")
	}

	log := b.log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	r := &Router[U, V]{
		id:   NewDevId(),
		name: b.name,
		u2v:  b.u2v,
		v2u:  b.v2u,
	}
	r.txU, r.rxU = b.epU.Split()
	r.txV, r.rxV = b.epV.Split()
	r.log = log.WithField("router", r.String())
	return r, nil
}
