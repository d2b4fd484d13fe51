package domain

import (
	"fmt"

	"github.com/linkerd/fabricd/bus"
)

func invalidHandlerErr(h SwitchHandler) error {
	return bus.NewError(bus.KindInvalidHandler, fmt.Sprintf("no node at handle %v", h))
}

func handlerIsNotSwitchErr(h SwitchHandler) error {
	return bus.NewError(bus.KindHandlerIsNotSwitch, fmt.Sprintf("handle %v is not a switch", h))
}

func typeMismatchErr(h SwitchHandler) error {
	return bus.NewError(bus.KindTypeMismatch, fmt.Sprintf("handle %v's switch payload type doesn't match", h))
}

func switchJoinErr(cause error) error {
	return bus.WrapError(bus.KindSwitchJoinError, "join_switches attach/build failed", cause)
}
