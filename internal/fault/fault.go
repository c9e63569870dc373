// ABOUTME: Tagged error type carrying the sync core's failure taxonomy.
// ABOUTME: Classifies transport errors once so callers branch on Kind, not on raw errors.

package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
)

// Kind enumerates failure categories.
type Kind int

const (
	KindUnknown Kind = iota
	KindIncompatibleAPI
	KindTransientNetwork
	KindCircuitOpen
	KindCancelled
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindIncompatibleAPI:
		return "incompatible_api"
	case KindTransientNetwork:
		return "transient_network"
	case KindCircuitOpen:
		return "circuit_open"
	case KindCancelled:
		return "cancelled"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Sentinels matched by (*Error).Is.
var (
	ErrIncompatibleAPI  = errors.New("incompatible gateway api")
	ErrTransientNetwork = errors.New("transient network failure")
	ErrCircuitOpen      = errors.New("circuit open")
	ErrCancelled        = errors.New("operation cancelled")
	ErrValidation       = errors.New("invalid request")
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Tool is set when an IncompatibleAPI failure is scoped to one tool
	// rather than the whole connection.
	Tool string
	// Message is safe to show to operators. It never contains raw
	// transport detail.
	Message string
	Refused bool
	Timeout bool
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Tool != "" {
		msg = fmt.Sprintf("%s (tool %s)", msg, e.Tool)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrIncompatibleAPI:
		return e.Kind == KindIncompatibleAPI
	case ErrTransientNetwork:
		return e.Kind == KindTransientNetwork
	case ErrCircuitOpen:
		return e.Kind == KindCircuitOpen
	case ErrCancelled:
		return e.Kind == KindCancelled
	case ErrValidation:
		return e.Kind == KindValidation
	}
	return false
}

// Incompatible reports that the gateway is not serving a compatible API.
// An empty tool means the whole endpoint is incompatible.
func Incompatible(tool, message string, err error) *Error {
	return &Error{Kind: KindIncompatibleAPI, Tool: tool, Message: message, Err: err}
}

// Unsupported reports that a single tool is absent on the gateway.
func Unsupported(tool string) *Error {
	return &Error{Kind: KindIncompatibleAPI, Tool: tool, Message: "tool not available on gateway"}
}

// Transient wraps a retryable network failure.
func Transient(message string, err error) *Error {
	e := &Error{Kind: KindTransientNetwork, Message: message, Err: err}
	e.Refused = isRefused(err)
	e.Timeout = isTimeout(err)
	return e
}

// CircuitOpen reports that the governor refused to attempt an operation.
func CircuitOpen() *Error {
	return &Error{Kind: KindCircuitOpen, Message: "circuit open; gateway calls suspended"}
}

// Cancelled wraps a context cancellation.
func Cancelled(err error) *Error {
	return &Error{Kind: KindCancelled, Message: "cancelled", Err: err}
}

// Validation reports malformed input.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// KindOf returns the taxonomy kind of err. Unclassified errors are
// KindUnknown; bare context errors are KindCancelled.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindUnknown
}

// Retryable reports whether the governor may try err's operation again.
// Unclassified errors are retried.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransientNetwork, KindUnknown:
		return true
	default:
		return false
	}
}

// FromTransport classifies an error returned by an HTTP or socket client.
// Already classified errors pass through unchanged.
func FromTransport(err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return Cancelled(err)
	}
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return Transient("gateway did not respond in time", err)
	}
	if isRefused(err) {
		return Transient("gateway refused the connection", err)
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return Transient("gateway unreachable", err)
	}
	return err
}

func isRefused(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
