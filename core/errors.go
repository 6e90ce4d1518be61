package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind is the stable, caller-visible classification of an execution
// failure. Kinds map 1:1 onto terminal result statuses so transports can
// translate failures without parsing message text.
type ErrorKind string

// The closed error taxonomy.
const (
	KindConfiguration    ErrorKind = "configuration_error"
	KindAgentNotFound    ErrorKind = "agent_not_found"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindRateLimited      ErrorKind = "rate_limit_exceeded"
	KindPromptInjection  ErrorKind = "prompt_injection"
	KindProvider         ErrorKind = "provider_error"
	KindTool             ErrorKind = "tool_error"
	KindCancelled        ErrorKind = "cancelled"
	KindTimeout          ErrorKind = "timeout"
	KindInternal         ErrorKind = "internal_error"
)

// Error is the typed failure carried through the orchestrator. Message is
// safe to surface to callers: constructors never embed provider payloads or
// credential fragments.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error // wrapped cause, for logs only
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Err }

// NewConfigurationError reports bad or missing agent/provider configuration.
// Not retried; surfaced to the caller as a 4xx-equivalent.
func NewConfigurationError(msg string, cause error) *Error {
	return &Error{Kind: KindConfiguration, Message: msg, Err: cause}
}

// NewAgentNotFoundError reports a missing or foreign-owned agent config.
func NewAgentNotFoundError(agentID string) *Error {
	return &Error{Kind: KindAgentNotFound, Message: fmt.Sprintf("agent %s not found", agentID)}
}

// NewPermissionDeniedError reports a failed capability or tool-list check,
// naming the missing capability so callers can show an actionable message.
func NewPermissionDeniedError(capability string) *Error {
	return &Error{Kind: KindPermissionDenied, Message: fmt.Sprintf("missing capability %s", capability)}
}

// NewRateLimitedError reports an exhausted per-(user, agent) rate budget.
func NewRateLimitedError(msg string) *Error {
	return &Error{Kind: KindRateLimited, Message: msg}
}

// NewPromptInjectionError reports a blocked inbound message. The reason is
// the guard's pattern category, never the raw matched text.
func NewPromptInjectionError(reason string) *Error {
	return &Error{Kind: KindPromptInjection, Message: reason}
}

// NewProviderError reports an unrecoverable provider fault after retries are
// exhausted.
func NewProviderError(msg string, cause error) *Error {
	return &Error{Kind: KindProvider, Message: msg, Err: cause}
}

// NewToolError reports a tool fault that terminated the execution (only when
// it was the final remaining step; mid-loop tool faults become observations).
func NewToolError(msg string, cause error) *Error {
	return &Error{Kind: KindTool, Message: msg, Err: cause}
}

// NewInternalError wraps unexpected faults with a non-leaking message.
func NewInternalError(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: cause}
}

// KindOf extracts the stable kind from any error, classifying context
// cancellation and deadline expiry along the way.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	switch {
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindInternal
	}
}

// StatusFor maps an error to the terminal execution status it implies.
func StatusFor(err error) Status {
	switch KindOf(err) {
	case KindPermissionDenied:
		return StatusPermissionDenied
	case KindRateLimited:
		return StatusRateLimited
	case KindPromptInjection:
		return StatusBlocked
	case KindCancelled:
		return StatusCancelled
	default:
		return StatusFailed
	}
}
