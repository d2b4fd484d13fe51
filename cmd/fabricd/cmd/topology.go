package cmd

import (
	"encoding/binary"

	log "github.com/sirupsen/logrus"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linkerd/fabricd/bus"
	"github.com/linkerd/fabricd/domain"
)

// ipv4 demonstrates a Router bridging a uint32 subnet to a differently
// typed one, the same cross-type scenario spec.md §8's S4 describes.
type ipv4 [4]byte

func u32ToIPv4(v uint32) ipv4 {
	var b ipv4
	binary.BigEndian.PutUint32(b[:], v)
	return b
}

func ipv4ToU32(b ipv4) uint32 {
	return binary.BigEndian.Uint32(b[:])
}

// buildDemoDomain assembles a small two-subnet topology: a uint32 switch
// and an ipv4 switch joined by a router, each with one external endpoint.
// It exists so `serve` and `draw` exercise the same graph.
func buildDemoDomain(reg prometheus.Registerer) (*domain.Domain, domain.SwitchHandler, domain.SwitchHandler, error) {
	d := domain.New(log.WithField("component", "demo")).
		WithRegisterer(reg).
		WithWireCapacity(wireCapacity)

	sw1, err := domain.AddSwitch[uint32](d, "sw1")
	if err != nil {
		return nil, domain.SwitchHandler{}, domain.SwitchHandler{}, err
	}
	sw2, err := domain.AddSwitch[ipv4](d, "sw2")
	if err != nil {
		return nil, domain.SwitchHandler{}, domain.SwitchHandler{}, err
	}
	if err := domain.JoinSwitches[uint32, ipv4](d, sw1, sw2, "R", u32ToIPv4, ipv4ToU32); err != nil {
		return nil, domain.SwitchHandler{}, domain.SwitchHandler{}, err
	}
	if _, err := domain.AddEndpoint[uint32](d, sw1, bus.Named("ep0")); err != nil {
		return nil, domain.SwitchHandler{}, domain.SwitchHandler{}, err
	}
	if _, err := domain.AddEndpoint[ipv4](d, sw2, bus.Named("ep1")); err != nil {
		return nil, domain.SwitchHandler{}, domain.SwitchHandler{}, err
	}
	return d, sw1, sw2, nil
}
