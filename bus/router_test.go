package bus

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ipv4 [4]byte

func u32ToIPv4(v uint32) ipv4 {
	var b ipv4
	binary.BigEndian.PutUint32(b[:], v)
	return b
}

func ipv4ToU32(b ipv4) uint32 {
	return binary.BigEndian.Uint32(b[:])
}

// S4 — single router, cross-type: a packet originating on a uint32 switch
// arrives on an ipv4 switch with its payload converted and its envelope
// (saddr, daddr) preserved.
func TestRouterCrossTypeForwarding(t *testing.T) {
	ep0Sw, ep0Ext := NewWire[uint32]()
	ep1Sw, ep1Ext := NewWire[ipv4]()
	rUSw, rURouter := NewWire[uint32]()
	rVSw, rVRouter := NewWire[ipv4]()

	sw1, err := NewSwitchBuilder[uint32]().
		Attach(Named("ep0"), ep0Sw).
		AttachRouter(Named("R"), rUSw).
		SetModeBroadcast().
		Done()
	require.NoError(t, err)

	sw2, err := NewSwitchBuilder[ipv4]().
		Attach(Named("ep1"), ep1Sw).
		AttachRouter(Named("R"), rVSw).
		SetModeBroadcast().
		Done()
	require.NoError(t, err)

	router, err := NewRouterBuilder[uint32, ipv4]().
		SetName("R").
		SetEndpoint0(rURouter).
		SetEndpoint1(rVRouter).
		SetConversions(u32ToIPv4, ipv4ToU32).
		Done()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = sw1.Run(ctx) }()
	go func() { _ = sw2.Run(ctx) }()
	go func() { _ = router.Run(ctx) }()

	ep0Tx, _ := ep0Ext.Split()
	_, ep1Rx := ep1Ext.Split()

	ep0Tx.Send(Named("ep1"), 0xAC1097D6)

	val, saddr, daddr, err := ep1Rx.RecvDataAddr(ctx)
	require.NoError(t, err)
	assert.Equal(t, u32ToIPv4(0xAC1097D6), val)
	assert.True(t, saddr.Equal(Named("ep0")))
	assert.True(t, daddr.Equal(Named("ep1")))
}

func TestRouterBuilderRequiresEndpointsAndConversions(t *testing.T) {
	_, err := NewRouterBuilder[uint32, ipv4]().Done()
	require.Error(t, err)
	assert.True(t, IsBuildError(err))
}
