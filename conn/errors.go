// Package conn implements the Badgelink request/response state machine:
// frame send/receive, the serial-number sync handshake, and SimpleRequest's
// retry-and-error-mapping semantics.
//
// Connection wraps a transport-agnostic RPC layer, with every fallible call
// routed through github.com/juju/errors so callers can errors.Trace/
// errors.Cause freely.
package conn

import (
	"fmt"

	"github.com/juju/errors"

	"github.com/mongoose-os/badgelink/proto"
)

// Kind enumerates the flat error taxonomy a Connection can surface. It
// deliberately does not distinguish the device status codes that make it
// into a successful response's Response.Status — those are reported via
// Kind Badge plus the embedded proto.StatusCode.
type Kind int

const (
	// KindCommunication covers framing failures: short frames, bad COBS,
	// CRC32 mismatches, and serial-number mismatches between request and
	// response.
	KindCommunication Kind = iota
	// KindTimeout means no (valid) response arrived before the deadline.
	KindTimeout
	// KindDisconnected means the transport reported the badge is gone.
	KindDisconnected
	// KindMalformedResponse means a response was well-framed but violated a
	// protocol invariant (e.g. missing response field, bad chunk position).
	KindMalformedResponse
	// KindBadge means the badge returned a non-Ok status code for an
	// otherwise well-formed request.
	KindBadge
	// KindInvalidArgument means the facade rejected a call locally, before
	// sending anything: an oversized or NUL-containing field that the wire
	// encoding can't represent safely.
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindCommunication:
		return "Communication"
	case KindTimeout:
		return "Timeout"
	case KindDisconnected:
		return "Disconnected"
	case KindMalformedResponse:
		return "MalformedResponse"
	case KindBadge:
		return "Badge"
	case KindInvalidArgument:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type every exported Connection/Client method
// returns on failure. It implements Causer so github.com/juju/errors can
// still unwrap through it.
type Error struct {
	Kind Kind
	// Status is populated when Kind is KindBadge.
	Status proto.StatusCode
	// What names the resource a NotFound error failed to find, when known.
	What string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindBadge:
		if e.What != "" && e.Status == proto.StatusNotFound {
			return fmt.Sprintf("%s not found", e.What)
		}
		return fmt.Sprintf("badge returned %s", e.Status)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s", e.Kind, e.Err)
		}
		return e.Kind.String()
	}
}

func (e *Error) Cause() error {
	if e.Err != nil {
		return e.Err
	}
	return e
}

func communicationErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindCommunication, Err: errors.Errorf(format, args...)}
}

func timeoutErr(err error) *Error {
	return &Error{Kind: KindTimeout, Err: err}
}

func disconnectedErr(err error) *Error {
	return &Error{Kind: KindDisconnected, Err: err}
}

func malformedErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindMalformedResponse, Err: errors.Errorf(format, args...)}
}

// NewMalformedResponseError constructs a KindMalformedResponse *Error, for
// use by callers (such as package client) that detect a protocol invariant
// violation above the raw request/response layer.
func NewMalformedResponseError(format string, args ...interface{}) *Error {
	return malformedErr(format, args...)
}

// NewInvalidArgumentError constructs a KindInvalidArgument *Error, for use
// by callers (such as package client) that reject a call's arguments before
// issuing any request.
func NewInvalidArgumentError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidArgument, Err: errors.Errorf(format, args...)}
}

func badgeErr(status proto.StatusCode, what string) *Error {
	return &Error{Kind: KindBadge, Status: status, What: what}
}

// IsNotFound reports whether err is a badge-reported StatusNotFound.
func IsNotFound(err error) bool {
	e, ok := errors.Cause(err).(*Error)
	return ok && e.Kind == KindBadge && e.Status == proto.StatusNotFound
}
