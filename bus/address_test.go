package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressEquality(t *testing.T) {
	assert.True(t, P2P.Equal(P2P))
	assert.True(t, Broadcast.Equal(Broadcast))
	assert.False(t, P2P.Equal(Broadcast))
	assert.True(t, Named("a").Equal(Named("a")))
	assert.False(t, Named("a").Equal(Named("b")))
}

func TestAddressString(t *testing.T) {
	assert.Equal(t, "P2P", P2P.String())
	assert.Equal(t, "BROADCAST", Broadcast.String())
	assert.Equal(t, "svc", Named("svc").String())
}

func TestAddressKindPredicates(t *testing.T) {
	assert.True(t, Named("x").IsNamed())
	assert.True(t, Broadcast.IsBroadcast())
	assert.True(t, P2P.IsP2P())
}
