package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies provider faults for retry decisions.
type Kind string

// Provider fault kinds.
const (
	KindNotFound      Kind = "provider_not_found"
	KindMisconfigured Kind = "provider_misconfigured"
	KindTimeout       Kind = "provider_timeout"
	KindRateLimited   Kind = "provider_rate_limited"
	KindTransport     Kind = "provider_transport_error"
)

// Error is a typed provider fault. Message must stay free of request/response
// payloads and credentials; the wrapped cause is for logs only.
type Error struct {
	Provider string
	Kind     Kind
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause for errors chains.
func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the fault may succeed on retry. Timeouts are
// excluded; the engine retries those only when its remaining wall-clock
// budget allows.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransport || e.Kind == KindRateLimited
}

// NewNotFoundError reports an unregistered provider name.
func NewNotFoundError(name string) *Error {
	return &Error{Provider: name, Kind: KindNotFound, Message: "no adapter registered"}
}

// NewMisconfiguredError reports missing or invalid provider configuration.
func NewMisconfiguredError(name, msg string) *Error {
	return &Error{Provider: name, Kind: KindMisconfigured, Message: msg}
}

// NewTimeoutError reports an exceeded per-call deadline.
func NewTimeoutError(name string, cause error) *Error {
	return &Error{Provider: name, Kind: KindTimeout, Message: "call deadline exceeded", Err: cause}
}

// NewRateLimitedError reports a vendor-side 429-equivalent.
func NewRateLimitedError(name string, cause error) *Error {
	return &Error{Provider: name, Kind: KindRateLimited, Message: "rate limited by provider", Err: cause}
}

// NewTransportError reports network failures and 5xx-equivalents.
func NewTransportError(name string, cause error) *Error {
	return &Error{Provider: name, Kind: KindTransport, Message: "transport failure", Err: cause}
}

// KindOf extracts the fault kind from any error, classifying context and
// network errors from SDKs that do not return *Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &ne) && ne.Timeout():
		return KindTimeout
	case errors.As(err, &ne):
		return KindTransport
	default:
		return KindTransport
	}
}

// Wrap normalizes an arbitrary adapter error into a typed *Error attributed
// to the named provider. Existing *Error values pass through unchanged.
func Wrap(name string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	switch KindOf(err) {
	case KindTimeout:
		return NewTimeoutError(name, err)
	case KindRateLimited:
		return NewRateLimitedError(name, err)
	default:
		return NewTransportError(name, err)
	}
}
