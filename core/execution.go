package core

import (
	"time"

	"github.com/google/uuid"
)

// NewID generates a unique identifier for executions, tool calls and memory
// records.
func NewID() string { return uuid.NewString() }

// Request is the inbound execution request consumed from the transport layer.
type Request struct {
	AgentID  string            `json:"agent_id"`
	UserID   string            `json:"user_id"`
	ThreadID string            `json:"thread_id,omitempty"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ExecutionContext identifies one execution. It is constructed once per
// inbound request, read-only for the duration of the execution, and never
// persisted itself; it references persisted entities by id.
type ExecutionContext struct {
	ExecutionID string
	AgentID     string
	UserID      string
	ThreadID    string
	Metadata    map[string]string
}

// NewExecutionContext derives an ExecutionContext from a request, minting an
// execution id and a thread id when the caller did not supply one.
func NewExecutionContext(req Request) ExecutionContext {
	threadID := req.ThreadID
	if threadID == "" {
		threadID = NewID()
	}
	return ExecutionContext{
		ExecutionID: NewID(),
		AgentID:     req.AgentID,
		UserID:      req.UserID,
		ThreadID:    threadID,
		Metadata:    req.Metadata,
	}
}

// StepKind tags the variant of an ExecutionStep.
type StepKind int

// The step variants produced by the planner and consumed by the acting loop.
const (
	StepUnderstand StepKind = iota
	StepInvokeTool
	StepCallProvider
	StepFinalize
)

// String returns a short label for logging.
func (k StepKind) String() string {
	switch k {
	case StepUnderstand:
		return "understand"
	case StepInvokeTool:
		return "invoke_tool"
	case StepCallProvider:
		return "call_provider"
	case StepFinalize:
		return "finalize"
	default:
		return "unknown"
	}
}

// ExecutionStep is one planner-emitted unit of work. Tool and Args are set
// for StepInvokeTool; Prompt for StepCallProvider. Steps are ephemeral and
// exist only within one execution.
type ExecutionStep struct {
	Kind   StepKind
	Tool   string
	Args   map[string]any
	Prompt string
}

// ToolResult captures the outcome of a single tool invocation. Failed tool
// calls produce a ToolResult with Success=false rather than an error so the
// acting loop can continue and surface the failure as an observation. The one
// exception is a capability denial: MissingCapability is set and the
// orchestrator terminates the execution with a permission_denied status.
type ToolResult struct {
	Tool    string        `json:"name"`
	Args    map[string]any `json:"args,omitempty"`
	Success bool          `json:"success"`
	Output  any           `json:"result,omitempty"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"duration_ms"`

	// MissingCapability names the capability the agent lacked when the
	// permission gate denied the call. Empty for every other failure mode.
	MissingCapability Capability `json:"missing_capability,omitempty"`
}

// TokenUsage accumulates prompt/completion token counts across provider calls.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
}

// Add merges another usage sample into the receiver.
func (u *TokenUsage) Add(o TokenUsage) {
	u.Prompt += o.Prompt
	u.Completion += o.Completion
}

// Total returns prompt + completion tokens.
func (u TokenUsage) Total() int { return u.Prompt + u.Completion }

// Status is the terminal state of an execution.
type Status string

// Terminal statuses. Exactly one ExecutionResult with one of these statuses
// is produced per execution.
const (
	StatusSucceeded        Status = "succeeded"
	StatusFailed           Status = "failed"
	StatusPermissionDenied Status = "permission_denied"
	StatusRateLimited      Status = "rate_limited"
	StatusBlocked          Status = "blocked"
	StatusCancelled        Status = "cancelled"
)

// ExecutionResult is the single structured outcome of an execution. All tool
// invocations listed in ToolCalls happened-before the terminal status was set.
type ExecutionResult struct {
	ExecutionID  string       `json:"execution_id"`
	Status       Status       `json:"status"`
	ResponseText string       `json:"response_text,omitempty"`
	ToolCalls    []ToolResult `json:"tool_calls,omitempty"`
	Usage        TokenUsage   `json:"token_usage"`
	CostEstimate float64      `json:"cost_estimate"`
	Duration     time.Duration `json:"duration_ms"`
	ErrorKind    ErrorKind    `json:"error_kind,omitempty"`
	Message      string       `json:"message,omitempty"`
}
