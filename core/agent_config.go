package core

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Capability identifies a single permission an agent may hold. Capabilities
// gate tool execution: a tool declares the capability it requires and the
// guard checks the agent's PermissionSet before the tool body runs.
type Capability string

// The closed set of capabilities understood by the permission checker.
const (
	CapabilityInternetAccess Capability = "can_access_internet"
	CapabilityFileAccess     Capability = "can_access_files"
	CapabilityExecuteCode    Capability = "can_execute_code"
	CapabilityMessaging      Capability = "can_send_messages"
	CapabilityModifyData     Capability = "can_modify_data"
)

// PermissionSet declares which capabilities an agent holds. A capability that
// is absent (false) is denied; checks are a boolean AND over the declared set.
type PermissionSet struct {
	InternetAccess bool `json:"can_access_internet" yaml:"can_access_internet"`
	FileAccess     bool `json:"can_access_files" yaml:"can_access_files"`
	ExecuteCode    bool `json:"can_execute_code" yaml:"can_execute_code"`
	Messaging      bool `json:"can_send_messages" yaml:"can_send_messages"`
	ModifyData     bool `json:"can_modify_data" yaml:"can_modify_data"`
}

// Has reports whether the set grants the given capability. Unknown
// capabilities are always denied.
func (p PermissionSet) Has(c Capability) bool {
	switch c {
	case CapabilityInternetAccess:
		return p.InternetAccess
	case CapabilityFileAccess:
		return p.FileAccess
	case CapabilityExecuteCode:
		return p.ExecuteCode
	case CapabilityMessaging:
		return p.Messaging
	case CapabilityModifyData:
		return p.ModifyData
	default:
		return false
	}
}

// MemoryKind selects which memory backend an agent's context is built from.
type MemoryKind string

// Supported memory kinds.
const (
	MemoryConversation MemoryKind = "conversation" // ordered append-only log
	MemoryVector       MemoryKind = "vector"       // similarity-retrieved
	MemorySession      MemoryKind = "session"      // per-thread scratchpad
)

// AdvancedConfig holds the tunable execution limits of an agent. Zero values
// are replaced with defaults by Normalize.
type AdvancedConfig struct {
	// MaxIterations bounds the acting loop (tool + provider steps) regardless
	// of planner output.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
	// TimeoutSeconds bounds total wall time across all states.
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`
	// MaxRetries bounds retries of a single provider step for retryable faults.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
	// EnablePlanning turns on the LLM-backed plan refinement; the default
	// fixed skeleton needs no provider call.
	EnablePlanning bool `json:"enable_planning" yaml:"enable_planning"`
	// ContextBudgetTokens caps the estimated token size of assembled memory
	// context.
	ContextBudgetTokens int `json:"context_budget_tokens" yaml:"context_budget_tokens"`
	// ToolTimeout bounds a single tool invocation.
	ToolTimeout time.Duration `json:"tool_timeout" yaml:"tool_timeout"`
}

// Defaults applied by Normalize.
const (
	DefaultMaxIterations       = 10
	DefaultTimeoutSeconds      = 300
	DefaultMaxRetries          = 3
	DefaultContextBudgetTokens = 4096
	DefaultToolTimeout         = 15 * time.Second
)

// Normalize fills unset limits with defaults.
func (a *AdvancedConfig) Normalize() {
	if a.MaxIterations <= 0 {
		a.MaxIterations = DefaultMaxIterations
	}
	if a.TimeoutSeconds <= 0 {
		a.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if a.MaxRetries <= 0 {
		a.MaxRetries = DefaultMaxRetries
	}
	if a.ContextBudgetTokens <= 0 {
		a.ContextBudgetTokens = DefaultContextBudgetTokens
	}
	if a.ToolTimeout <= 0 {
		a.ToolTimeout = DefaultToolTimeout
	}
}

// UnmarshalYAML decodes the advanced block, accepting human-readable tool
// timeout strings ("15s") which yaml.v3 does not parse into durations
// natively.
func (a *AdvancedConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		MaxIterations       int    `yaml:"max_iterations"`
		TimeoutSeconds      int    `yaml:"timeout_seconds"`
		MaxRetries          int    `yaml:"max_retries"`
		EnablePlanning      bool   `yaml:"enable_planning"`
		ContextBudgetTokens int    `yaml:"context_budget_tokens"`
		ToolTimeout         string `yaml:"tool_timeout"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	a.MaxIterations = raw.MaxIterations
	a.TimeoutSeconds = raw.TimeoutSeconds
	a.MaxRetries = raw.MaxRetries
	a.EnablePlanning = raw.EnablePlanning
	a.ContextBudgetTokens = raw.ContextBudgetTokens
	if raw.ToolTimeout != "" {
		d, err := time.ParseDuration(raw.ToolTimeout)
		if err != nil {
			return fmt.Errorf("invalid tool_timeout %q: %w", raw.ToolTimeout, err)
		}
		a.ToolTimeout = d
	}
	return nil
}

// Timeout returns the overall wall-clock budget as a duration.
func (a AdvancedConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// AgentConfig is the persona of an agent expressed as data: a provider/model
// binding, a system prompt, permissions, tool lists and memory selection.
// It is immutable for the duration of one execution; mutations happen only
// between executions through the owning application.
type AgentConfig struct {
	ID           string         `json:"id" yaml:"id"`
	UserID       string         `json:"user_id" yaml:"user_id"`
	Name         string         `json:"name" yaml:"name"`
	Role         string         `json:"role" yaml:"role"`
	Provider     string         `json:"provider" yaml:"provider"`
	Model        string         `json:"model" yaml:"model"`
	SystemPrompt string         `json:"system_prompt" yaml:"system_prompt"`
	Permissions  PermissionSet  `json:"permissions" yaml:"permissions"`
	AllowedTools []string       `json:"allowed_tools" yaml:"allowed_tools"`
	DeniedTools  []string       `json:"denied_tools" yaml:"denied_tools"`
	MemoryKind   MemoryKind     `json:"memory_kind" yaml:"memory_kind"`
	Advanced     AdvancedConfig `json:"advanced" yaml:"advanced"`
}

// Validate checks the fields an execution cannot proceed without.
func (c *AgentConfig) Validate() error {
	if c.ID == "" {
		return NewConfigurationError("agent config missing id", nil)
	}
	if c.Name == "" {
		return NewConfigurationError(fmt.Sprintf("agent %s missing name", c.ID), nil)
	}
	if c.Provider == "" {
		return NewConfigurationError(fmt.Sprintf("agent %s missing provider", c.ID), nil)
	}
	switch c.MemoryKind {
	case "", MemoryConversation, MemoryVector, MemorySession:
	default:
		return NewConfigurationError(fmt.Sprintf("agent %s: unknown memory kind %q", c.ID, c.MemoryKind), nil)
	}
	return nil
}

// ToolAllowed reports whether the named tool passes the agent's deny/allow
// lists. Denial takes precedence over allow-listing; an empty allow list
// permits every tool not explicitly denied.
func (c *AgentConfig) ToolAllowed(name string) bool {
	if slices.Contains(c.DeniedTools, name) {
		return false
	}
	if len(c.AllowedTools) == 0 {
		return true
	}
	return slices.Contains(c.AllowedTools, name)
}

// Clone returns a deep copy safe for independent mutation between executions.
func (c *AgentConfig) Clone() *AgentConfig {
	clone := *c
	clone.AllowedTools = slices.Clone(c.AllowedTools)
	clone.DeniedTools = slices.Clone(c.DeniedTools)
	return &clone
}

// EffectiveMemoryKind returns the configured kind, defaulting to the
// conversation log.
func (c *AgentConfig) EffectiveMemoryKind() MemoryKind {
	if c.MemoryKind == "" {
		return MemoryConversation
	}
	return MemoryKind(strings.ToLower(string(c.MemoryKind)))
}
