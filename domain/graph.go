package domain

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/linkerd/fabricd/bus"
)

// nodeKind tags the kind of device a graph node wraps, the Go rendering of
// spec.md §4.5's "internal tagged variant Device = Switch(capability) |
// Router(capability) | EndpointMarker(addr)".
type nodeKind uint8

const (
	nodeSwitch nodeKind = iota
	nodeRouter
	nodeEndpointMarker
)

// devicePoller is the type-erased capability a Domain needs to schedule a
// device: a context-driven poll loop plus a printable name. *bus.Switch[T]
// and *bus.Router[U,V] satisfy this for any instantiation of T, U, V,
// since neither method's signature depends on the type parameter.
type devicePoller interface {
	Run(ctx context.Context) error
	String() string
}

// node is one vertex of the domain graph. device holds the underlying
// *bus.Switch[T] or *bus.Router[U,V] as `any`; operations typed by payload
// recover the concrete type with a type assertion, returning TypeMismatch
// on failure, per spec.md §4.5's "controlled downcast" strategy. runner
// holds the same value through the type-erased devicePoller interface, for
// nodes that are schedulable (switch, router) — nil for endpoint markers.
type node struct {
	kind   nodeKind
	id     bus.DevId
	name   string
	device any
	runner devicePoller
	addr   bus.Address // meaningful for nodeEndpointMarker only
}

// SwitchHandler identifies a switch node added to a Domain: a graph index
// plus its device id, mirroring spec.md §4.5's "SwitchHandler (graph index
// + device id)".
type SwitchHandler struct {
	idx int
	id  bus.DevId
}

// ID reports the underlying switch's DevId.
func (h SwitchHandler) ID() bus.DevId { return h.id }

// Domain is an undirected graph builder over bus.Switch / bus.Router /
// endpoint-marker nodes. The zero value is not usable; construct with New.
type Domain struct {
	mu       sync.Mutex
	nodes    []node
	edges    [][2]int
	log      *logrus.Entry
	reg      prometheus.Registerer
	capacity int
}

// New constructs an empty Domain. log, if nil, defaults to
// logrus.StandardLogger().
func New(log *logrus.Entry) *Domain {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Domain{log: log.WithField("component", "domain")}
}

// WithRegisterer registers every subsequently-added switch's packet/lag
// counters against reg, the same WithRegisterer a bus.SwitchBuilder takes
// directly; Domain just threads it through for callers that build their
// graph exclusively via AddSwitch.
func (d *Domain) WithRegisterer(reg prometheus.Registerer) *Domain {
	d.reg = reg
	return d
}

// WithWireCapacity sets the per-subscriber buffer depth every wire created
// by AddEndpoint/JoinSwitches uses, overriding bus.DefaultBufferCapacity.
func (d *Domain) WithWireCapacity(capacity int) *Domain {
	d.capacity = capacity
	return d
}

func (d *Domain) wireCapacity() int {
	if d.capacity <= 0 {
		return bus.DefaultBufferCapacity
	}
	return d.capacity
}

func (d *Domain) addNode(n node) int {
	idx := len(d.nodes)
	d.nodes = append(d.nodes, n)
	return idx
}

func (d *Domain) addEdge(a, b int) {
	d.edges = append(d.edges, [2]int{a, b})
}

func (d *Domain) invalidHandler(idx int) bool {
	return idx < 0 || idx >= len(d.nodes)
}

// String renders one node for Draw().
func (n node) String() string {
	switch n.kind {
	case nodeSwitch:
		return fmt.Sprintf("switch(%s)", n.name)
	case nodeRouter:
		return fmt.Sprintf("router(%s)", n.name)
	default:
		return fmt.Sprintf("endpoint(%s)", n.addr)
	}
}
