package bus

// RouteInfo tags a Packet with the router port it last entered the current
// switch through. It is used to exclude that port as a re-broadcast
// candidate, preventing storms across router loops.
type RouteInfo struct {
	LastHop Address
}

// Packet is the fabric's envelope: a payload plus addressing metadata.
//
//   - Saddr is set exactly once, by the ingress switch, when the
//     originating port is a non-router port.
//   - When a switch ingresses a packet from a router port, RtInfo.LastHop
//     is updated (or created); Saddr is never overwritten in that case.
//   - Converting a Packet's payload type at a Router leaves Daddr, Saddr
//     and RtInfo untouched.
type Packet[T any] struct {
	Val    T
	Daddr  Address
	Saddr  *Address
	RtInfo *RouteInfo
}

// NewPacket builds a fresh, locally-originated packet with no saddr and no
// route info.
func NewPacket[T any](daddr Address, val T) Packet[T] {
	return Packet[T]{Val: val, Daddr: daddr}
}

// clone returns a shallow copy of p suitable for fanning the same
// envelope out to multiple ports. Saddr/RtInfo pointers are copied as new
// allocations so that one port's tagging doesn't mutate another's view.
func (p Packet[T]) clone() Packet[T] {
	out := p
	if p.Saddr != nil {
		s := *p.Saddr
		out.Saddr = &s
	}
	if p.RtInfo != nil {
		r := *p.RtInfo
		out.RtInfo = &r
	}
	return out
}

// ConvertPacket rebuilds an envelope around a converted payload, preserving
// Daddr, Saddr and RtInfo verbatim. Used by Router to bridge two
// differently-typed switches.
func ConvertPacket[U, V any](p Packet[U], conv func(U) V) Packet[V] {
	return Packet[V]{
		Val:    conv(p.Val),
		Daddr:  p.Daddr,
		Saddr:  p.Saddr,
		RtInfo: p.RtInfo,
	}
}
