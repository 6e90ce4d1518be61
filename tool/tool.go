// Package tool implements the function / tool calling subsystem that lets agents
// invoke structured capabilities (APIs, computations, side-effects) with schema
// validated arguments, permission gating and consistent error handling.
package tool

import (
	"context"
	"fmt"

	"github.com/pravin-python/WorkSynapse-sub001/core"
)

// Tool defines the interface for extending agent capabilities with external
// functions.
//
// Tools can be registered with the shared Registry to enable function calling,
// allowing agents to perform actions beyond text generation such as API calls,
// calculations, database queries, or any other programmatic operations.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions (snake_case names)
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe if used concurrently
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the LLM to help it understand when and
	// how to use the tool.
	Description() string

	// Tags returns free-form labels used for discovery filtering.
	Tags() []string

	// RequiredCapability returns the permission an agent must hold to invoke
	// this tool, or the zero value when no capability is required.
	RequiredCapability() core.Capability

	// Parameters returns a JSON schema describing the expected input format.
	// This schema is used for argument validation and LLM function calling.
	Parameters() map[string]any

	// Call executes the tool with already-validated structured arguments.
	// Implementations must honor ctx cancellation for long-running work.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Descriptor is the read-only advertisement of a registered tool, handed to
// planners and model adapters.
type Descriptor struct {
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Tags               []string        `json:"tags,omitempty"`
	RequiredCapability core.Capability `json:"required_capability,omitempty"`
	Parameters         map[string]any  `json:"parameters"`
}

// Tool error codes.
const (
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_ERROR"
	CodePermission = "PERMISSION_DENIED"
	CodeTimeout    = "TIMEOUT"
	CodeExecution  = "EXECUTION_ERROR"
)

// ToolError represents errors that occur during tool lookup or execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
