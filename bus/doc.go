// Package bus implements an in-process message fabric: typed,
// point-to-point wires composed into address-multiplexed switches and
// type-translating routers.
//
// External actors hold Endpoints. A Tx pushes a Packet into one direction
// of its Wire; the peer Rx observes it. A Switch owns one port per
// attached endpoint and fans incoming packets out by address; a Router
// bridges two switches of differing payload types.
package bus
