// Package mcperr defines the sentinel error kinds shared across the MCP
// Integration Core, per spec.md §7.
package mcperr

import "fmt"

// Kind distinguishes the error categories the core surfaces across its
// boundary methods. Callers compare kinds with errors.Is against the
// package-level sentinels below, never by matching message text.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidConfig
	KindNotConnected
	KindTransportError
	KindTimeoutError
	KindToolError
	KindSchemaError
	KindNotConfigured
	KindShuttingDown
	KindUnknownFunction
)

func (k Kind) String() string {
	switch k {
	case KindInvalidConfig:
		return "InvalidConfig"
	case KindNotConnected:
		return "NotConnected"
	case KindTransportError:
		return "TransportError"
	case KindTimeoutError:
		return "TimeoutError"
	case KindToolError:
		return "ToolError"
	case KindSchemaError:
		return "SchemaError"
	case KindNotConfigured:
		return "NotConfiguredError"
	case KindShuttingDown:
		return "ShuttingDown"
	case KindUnknownFunction:
		return "UnknownFunction"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can branch on
// category via errors.Is/errors.As without parsing message text.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is(err, mcperr.KindX) via a sentinel comparison trick:
// callers use Of(kind) as the comparison target instead.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// Of constructs a zero-payload *Error of the given kind, suitable as the
// target of errors.Is(err, mcperr.Of(mcperr.KindNotConnected)).
func Of(kind Kind) *Error {
	return &Error{Kind: kind}
}

// New constructs a new *Error with a message and an optional wrapped cause.
func New(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Newf constructs a new *Error with a formatted message.
func Newf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}
