package bus

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCtx(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 2*time.Second)
}

// S1 — basic unicast.
func TestSwitchUnicast(t *testing.T) {
	srcSwSide, srcExtSide := NewWire[uint32]()
	dstSwSide, dstExtSide := NewWire[uint32]()

	sw, err := NewSwitchBuilder[uint32]().
		Attach(Named("src"), srcSwSide).
		Attach(Named("dst"), dstSwSide).
		Done()
	require.NoError(t, err)

	ctx, cancel := newTestCtx(t)
	defer cancel()
	go func() { _ = sw.Run(ctx) }()

	srcTx, _ := srcExtSide.Split()
	_, dstRx := dstExtSide.Split()

	srcTx.Send(Named("dst"), 0xDEADBEEF)

	pkt, err := dstRx.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), pkt.Val)
	require.NotNil(t, pkt.Saddr)
	assert.True(t, pkt.Saddr.Equal(Named("src")))
	assert.True(t, pkt.Daddr.Equal(Named("dst")))
}

// S2 — broadcast to multiple, excluding the source.
func TestSwitchBroadcastExcludesSource(t *testing.T) {
	aSw, aExt := NewWire[uint32]()
	bSw, bExt := NewWire[uint32]()
	cSw, cExt := NewWire[uint32]()

	sw, err := NewSwitchBuilder[uint32]().
		Attach(Named("a"), aSw).
		Attach(Named("b"), bSw).
		Attach(Named("c"), cSw).
		Done()
	require.NoError(t, err)

	ctx, cancel := newTestCtx(t)
	defer cancel()
	go func() { _ = sw.Run(ctx) }()

	_, aRx := aExt.Split()
	bTx, _ := bExt.Split()
	_, cRx := cExt.Split()

	bTx.Send(Broadcast, 0xDEADBEEF)

	pa, err := aRx.Recv(ctx)
	require.NoError(t, err)
	pc, err := cRx.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), pa.Val)
	assert.Equal(t, uint32(0xDEADBEEF), pc.Val)
	assert.True(t, pa.Saddr.Equal(Named("b")))

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer shortCancel()
	_, bRx := bExt.Clone().Split()
	_, err = bRx.Recv(shortCtx)
	assert.True(t, IsTimeout(err), "source port must not receive its own broadcast")
}

// S3 — dynamic endpoint via control plane.
func TestSwitchControlPlaneCreateEndpoint(t *testing.T) {
	sw, err := NewSwitchBuilder[uint32]().Done()
	require.NoError(t, err)

	ctx, cancel := newTestCtx(t)
	defer cancel()
	go func() { _ = sw.Run(ctx) }()

	ctrl := NewSwitchCtrl[uint32](sw.ControlEndpoint())
	e1, err := ctrl.AddEndpoint(ctx, Named("t1"))
	require.NoError(t, err)
	e2, err := ctrl.AddEndpoint(ctx, Named("t2"))
	require.NoError(t, err)

	tx1, _ := e1.Split()
	_, rx2 := e2.Split()

	tx1.Send(Named("t2"), 0xDEADBEEF)

	val, saddr, daddr, err := rx2.RecvDataAddr(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), val)
	assert.True(t, saddr.Equal(Named("t1")))
	assert.True(t, daddr.Equal(Named("t2")))
}

func TestSwitchControlPlaneDuplicateAddress(t *testing.T) {
	sw, err := NewSwitchBuilder[uint32]().Done()
	require.NoError(t, err)

	ctx, cancel := newTestCtx(t)
	defer cancel()
	go func() { _ = sw.Run(ctx) }()

	ctrl := NewSwitchCtrl[uint32](sw.ControlEndpoint())
	_, err = ctrl.AddEndpoint(ctx, Named("dup"))
	require.NoError(t, err)
	_, err = ctrl.AddEndpoint(ctx, Named("dup"))
	require.Error(t, err)
	assert.True(t, IsAddressInUsed(err))
}

// S5-style gateway mode: exactly one router port is targeted.
func TestSwitchGatewayModeDirectsOnlyToGateway(t *testing.T) {
	g1Sw, g1Ext := NewWire[uint32]()
	g2Sw, g2Ext := NewWire[uint32]()
	srcSw, srcExt := NewWire[uint32]()

	sw, err := NewSwitchBuilder[uint32]().
		AttachRouter(Named("g1"), g1Sw).
		AttachRouter(Named("g2"), g2Sw).
		Attach(Named("src"), srcSw).
		SetModeGateway(Named("g1")).
		Done()
	require.NoError(t, err)

	ctx, cancel := newTestCtx(t)
	defer cancel()
	go func() { _ = sw.Run(ctx) }()

	srcTx, _ := srcExt.Split()
	_, g1Rx := g1Ext.Split()
	srcTx.Send(Named("unknown"), 1)

	pkt, err := g1Rx.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), pkt.Val)

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer shortCancel()
	_, g2Rx := g2Ext.Split()
	_, err = g2Rx.Recv(shortCtx)
	assert.True(t, IsTimeout(err))
}

// Local mode drops unknown-destination, locally-originated packets.
func TestSwitchLocalModeDrops(t *testing.T) {
	rSw, rExt := NewWire[uint32]()
	srcSw, srcExt := NewWire[uint32]()

	sw, err := NewSwitchBuilder[uint32]().
		AttachRouter(Named("r"), rSw).
		Attach(Named("src"), srcSw).
		Done() // ModeLocal is the default
	require.NoError(t, err)

	ctx, cancel := newTestCtx(t)
	defer cancel()
	go func() { _ = sw.Run(ctx) }()

	srcTx, _ := srcExt.Split()
	srcTx.Send(Named("unknown"), 1)

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer shortCancel()
	_, rRx := rExt.Split()
	_, err = rRx.Recv(shortCtx)
	assert.True(t, IsTimeout(err))
}

// Loop avoidance: a packet re-entering via a router is never routed back
// out through that same router.
func TestSwitchRouteExcludesLastHop(t *testing.T) {
	r1Sw, r1Ext := NewWire[uint32]()
	r2Sw, r2Ext := NewWire[uint32]()

	sw, err := NewSwitchBuilder[uint32]().
		AttachRouter(Named("r1"), r1Sw).
		AttachRouter(Named("r2"), r2Sw).
		SetModeBroadcast().
		Done()
	require.NoError(t, err)

	ctx, cancel := newTestCtx(t)
	defer cancel()
	go func() { _ = sw.Run(ctx) }()

	r1Tx, _ := r1Ext.Split()
	_, r2Rx := r2Ext.Split()

	// A packet arriving via r1, destined for an unknown address, must only
	// go out r2 — never echo back out r1.
	last := Named("r1")
	r1Tx.SendPkt(Packet[uint32]{Val: 9, Daddr: Named("nowhere"), RtInfo: &RouteInfo{LastHop: last}})

	pkt, err := r2Rx.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), pkt.Val)

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer shortCancel()
	_, r1Rx := r1Ext.Clone().Split()
	_, err = r1Rx.Recv(shortCtx)
	assert.True(t, IsTimeout(err))
}

// Port simplex transition: once the external peer closes its sending
// handle (Tx), the switch's port Rx observes Closed. If the peer still
// holds a live Rx subscription, the port is kept as a send target
// (simplex) rather than removed outright.
func TestSwitchPortSimplexTransition(t *testing.T) {
	aSw, aExt := NewWire[uint32]()
	bSw, bExt := NewWire[uint32]()

	sw, err := NewSwitchBuilder[uint32]().
		Attach(Named("a"), aSw).
		Attach(Named("b"), bSw).
		Done()
	require.NoError(t, err)

	ctx, cancel := newTestCtx(t)
	defer cancel()
	go func() { _ = sw.Run(ctx) }()

	// Close only the sending half; keep the receiving half alive, per the
	// simplex design note ("a caller may drop the Rx side but retain Tx
	// handles" — here mirrored from the receiver's vantage point: the
	// switch's port Rx closes, but its Tx still has this live subscriber).
	aTx, aRx := aExt.Split()
	aTx.Close()

	// Give the switch's port goroutine a moment to observe the close and
	// transition the port.
	time.Sleep(50 * time.Millisecond)

	bTx, _ := bExt.Split()
	bTx.Send(Named("a"), 123)

	pkt, err := aRx.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(123), pkt.Val)
}

// When no live Rx remains on the external side either, the port is
// removed outright rather than kept simplex.
func TestSwitchPortRemovedWhenFullyClosed(t *testing.T) {
	aSw, aExt := NewWire[uint32]()
	bSw, bExt := NewWire[uint32]()

	sw, err := NewSwitchBuilder[uint32]().
		Attach(Named("a"), aSw).
		Attach(Named("b"), bSw).
		Done()
	require.NoError(t, err)

	ctx, cancel := newTestCtx(t)
	defer cancel()
	go func() { _ = sw.Run(ctx) }()

	aTx, aRx := aExt.Split()
	aRx.Close()
	aTx.Close()

	time.Sleep(50 * time.Millisecond)

	bTx, _ := bExt.Split()
	assert.NotPanics(t, func() { bTx.Send(Named("a"), 1) })
}

// A port whose external subscriber falls behind counts the drop against
// fabric_switch_lag_total{switch,port} rather than silently disappearing.
func TestSwitchLagIncrementsMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	srcSwSide, srcExtSide := NewWire[uint32]()
	dstSwSide, dstExtSide := NewWireCapacity[uint32](1)

	sw, err := NewSwitchBuilder[uint32]().
		SetName("sw").
		Attach(Named("src"), srcSwSide).
		Attach(Named("dst"), dstSwSide).
		WithRegisterer(reg).
		Done()
	require.NoError(t, err)

	ctx, cancel := newTestCtx(t)
	defer cancel()
	go func() { _ = sw.Run(ctx) }()

	srcTx, _ := srcExtSide.Split()
	_, dstRx := dstExtSide.Split()

	// dst's buffer holds one packet; leave it unread and send a second to
	// force a drop.
	srcTx.Send(Named("dst"), 1)
	time.Sleep(50 * time.Millisecond)
	srcTx.Send(Named("dst"), 2)

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(sw.metrics.lagged.WithLabelValues("sw", "dst")) > 0
	}, time.Second, 10*time.Millisecond, "lag metric never incremented")

	_, err = dstRx.Recv(ctx)
	require.NoError(t, err)
}

// Two switches built against the same Registerer must not collide:
// fabric_switch_packets_total/fabric_switch_lag_total are one family per
// registerer, distinguished by the "switch" label, not one family per
// switch.
func TestSwitchSharesMetricsFamilyAcrossRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()

	aSw, _ := NewWire[uint32]()
	bSw, _ := NewWire[uint32]()

	assert.NotPanics(t, func() {
		_, err := NewSwitchBuilder[uint32]().SetName("sw1").Attach(Named("a"), aSw).WithRegisterer(reg).Done()
		require.NoError(t, err)
		_, err = NewSwitchBuilder[uint32]().SetName("sw2").Attach(Named("b"), bSw).WithRegisterer(reg).Done()
		require.NoError(t, err)
	})
}
