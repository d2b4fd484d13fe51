package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireSendRecv(t *testing.T) {
	epA, epB := NewWire[int]()
	txA, _ := epA.Split()
	_, rxB := epB.Split()

	txA.Send(Named("dst"), 42)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	pkt, err := rxB.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, pkt.Val)
	assert.True(t, pkt.Daddr.Equal(Named("dst")))
	assert.Nil(t, pkt.Saddr)
}

func TestWireMultipleSubscribersFanOut(t *testing.T) {
	epA, epB := NewWire[int]()
	txA, _ := epA.Split()
	_, rx1 := epB.Split()
	_, rx2 := epB.Clone().Split()

	txA.Send(Broadcast, 7)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p1, err := rx1.Recv(ctx)
	require.NoError(t, err)
	p2, err := rx2.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, p1.Val)
	assert.Equal(t, 7, p2.Val)
}

func TestWireSendWithNoSubscribersIsSilent(t *testing.T) {
	epA, _ := NewWire[int]()
	txA, _ := epA.Split()
	assert.NotPanics(t, func() { txA.Send(Broadcast, 1) })
	assert.Equal(t, 0, txA.ReceiverCount())
}

func TestWireRecvTimeout(t *testing.T) {
	epA, _ := NewWire[int]()
	_, rxA := epA.Split()

	ctx := context.Background()
	_, err := rxA.RecvTimeout(ctx, 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestWireLagDropsRatherThanBlocks(t *testing.T) {
	epA, epB := NewWireCapacity[int](2)
	txA, _ := epA.Split()
	_, rxB := epB.Split()

	// Overrun the subscriber's buffer; Send must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			txA.Send(Broadcast, i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked under a slow subscriber")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// At least the buffered packets are still delivered, in order.
	first, err := rxB.Recv(ctx)
	require.NoError(t, err)
	second, err := rxB.Recv(ctx)
	require.NoError(t, err)
	assert.Less(t, first.Val, second.Val)
}

func TestRxStreamCompletesOnClose(t *testing.T) {
	epA, epB := NewWire[int]()
	txA, _ := epA.Split()
	_, rxB := epB.Split()
	stream := NewRxStream(rxB)

	txA.Send(Named("x"), 1)
	txA.Send(Named("x"), 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v1, _, _, ok, err := stream.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v1)

	v2, _, _, ok, err := stream.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, v2)

	// Close the underlying broadcaster directly through closeAll, the same
	// step Tx.Close takes once the last sending handle on a side closes.
	txA.b.closeAll()

	_, _, _, ok, err = stream.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
