package bus

import (
	"fmt"

	"go.uber.org/atomic"
)

// DevId is a process-unique, monotonically increasing identifier stamped
// on wires, endpoints, switches and routers. It is assigned once, at
// construction, and never reused.
type DevId uint64

var devIDCounter atomic.Uint64

// NewDevId allocates the next process-unique id.
func NewDevId() DevId {
	return DevId(devIDCounter.Inc())
}

func (d DevId) String() string {
	return fmt.Sprintf("dev-%d", uint64(d))
}
