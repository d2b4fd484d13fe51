package bus

import (
	"errors"
	"fmt"
)

// Kind classifies a fabric Error. Construction-time kinds (AddressInvalid
// through SwitchJoinError) indicate a programmer/config bug and always
// surface to the caller. Receive-side kinds (Timeout, Closed,
// AddressError) are ordinary, expected outcomes of a Rx call.
type Kind int

const (
	// KindAddressInvalid covers attaching Broadcast/P2P as a port address,
	// or setting a gateway to a non-router or missing address.
	KindAddressInvalid Kind = iota
	// KindAddressInUsed covers an address collision at attach time.
	KindAddressInUsed
	// KindBuildError covers a missing required field in a builder.
	KindBuildError
	// KindInvalidHandler covers a Domain handle referring to a missing
	// node.
	KindInvalidHandler
	// KindHandlerIsNotSwitch covers a Domain handle referring to a
	// non-switch node where a switch was expected.
	KindHandlerIsNotSwitch
	// KindHandlerIsNotRouter covers a Domain handle referring to a
	// non-router node where a router was expected.
	KindHandlerIsNotRouter
	// KindTypeMismatch covers a Domain operation whose typed payload
	// doesn't match the stored device's payload type.
	KindTypeMismatch
	// KindSwitchJoinError covers a propagated router-build failure during
	// JoinSwitches.
	KindSwitchJoinError
	// KindTimeout covers a receive that exceeded its deadline.
	KindTimeout
	// KindClosed covers a receive against a wire whose senders are all
	// gone.
	KindClosed
	// KindAddressError covers a receive-side projection (RecvData,
	// RecvDataAddr) called against a packet with no saddr.
	KindAddressError
	// KindUnknownCtrlErr covers a control response that didn't match the
	// expected variant.
	KindUnknownCtrlErr
)

func (k Kind) String() string {
	switch k {
	case KindAddressInvalid:
		return "AddressInvalid"
	case KindAddressInUsed:
		return "AddressInUsed"
	case KindBuildError:
		return "BuildError"
	case KindInvalidHandler:
		return "InvalidHandler"
	case KindHandlerIsNotSwitch:
		return "HandlerIsNotSwitch"
	case KindHandlerIsNotRouter:
		return "HandlerIsNotRouter"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindSwitchJoinError:
		return "SwitchJoinError"
	case KindTimeout:
		return "Timeout"
	case KindClosed:
		return "Closed"
	case KindAddressError:
		return "AddressError"
	case KindUnknownCtrlErr:
		return "UnknownCtrlErr"
	default:
		return "Unknown"
	}
}

// Error is the fabric's single error type. Callers should prefer the
// Is*(err) predicates below over comparing Kind directly, the way
// k8s.io/apimachinery's kerrors.IsNotFound(err) is used throughout the
// teacher's controller/api/destination package.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(k Kind, msg string) error {
	return &Error{Kind: k, Message: msg}
}

func wrapErr(k Kind, msg string, cause error) error {
	return &Error{Kind: k, Message: msg, Cause: cause}
}

// NewError builds a bus.Error of kind k, for callers outside this package
// (the domain package's Domain handle-validation errors) that need to
// raise one of this package's kinds without reimplementing the type.
func NewError(k Kind, msg string) error {
	return newErr(k, msg)
}

// WrapError is NewError with a wrapped cause.
func WrapError(k Kind, msg string, cause error) error {
	return wrapErr(k, msg, cause)
}

func kindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// IsAddressInvalid reports whether err is (or wraps) a KindAddressInvalid
// error.
func IsAddressInvalid(err error) bool { k, ok := kindOf(err); return ok && k == KindAddressInvalid }

// IsAddressInUsed reports whether err is (or wraps) a KindAddressInUsed
// error.
func IsAddressInUsed(err error) bool { k, ok := kindOf(err); return ok && k == KindAddressInUsed }

// IsBuildError reports whether err is (or wraps) a KindBuildError error.
func IsBuildError(err error) bool { k, ok := kindOf(err); return ok && k == KindBuildError }

// IsInvalidHandler reports whether err is (or wraps) a KindInvalidHandler
// error.
func IsInvalidHandler(err error) bool { k, ok := kindOf(err); return ok && k == KindInvalidHandler }

// IsTypeMismatch reports whether err is (or wraps) a KindTypeMismatch
// error.
func IsTypeMismatch(err error) bool { k, ok := kindOf(err); return ok && k == KindTypeMismatch }

// IsHandlerIsNotSwitch reports whether err is (or wraps) a
// KindHandlerIsNotSwitch error.
func IsHandlerIsNotSwitch(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindHandlerIsNotSwitch
}

// IsHandlerIsNotRouter reports whether err is (or wraps) a
// KindHandlerIsNotRouter error.
func IsHandlerIsNotRouter(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindHandlerIsNotRouter
}

// IsSwitchJoinError reports whether err is (or wraps) a
// KindSwitchJoinError error.
func IsSwitchJoinError(err error) bool { k, ok := kindOf(err); return ok && k == KindSwitchJoinError }

// IsTimeout reports whether err is (or wraps) a KindTimeout error.
func IsTimeout(err error) bool { k, ok := kindOf(err); return ok && k == KindTimeout }

// IsClosed reports whether err is (or wraps) a KindClosed error.
func IsClosed(err error) bool { k, ok := kindOf(err); return ok && k == KindClosed }

// IsAddressError reports whether err is (or wraps) a KindAddressError
// error.
func IsAddressError(err error) bool { k, ok := kindOf(err); return ok && k == KindAddressError }
