package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pravin-python/WorkSynapse-sub001/core"
	"github.com/pravin-python/WorkSynapse-sub001/logging"
)

// Invocation is one requested tool call, typically decoded from a model
// response. CallID correlates the invocation with the originating function
// call for conversation threading.
type Invocation struct {
	Name   string
	Args   map[string]any
	CallID string
}

// PermissionChecker decides whether an agent may use a capability. It is
// satisfied by the security guard; the decision's reason names the missing
// capability.
type PermissionChecker interface {
	CheckPermission(cfg *core.AgentConfig, capability core.Capability) core.GuardDecision
}

// ExecutorOptions configure an Executor instance.
type ExecutorOptions struct {
	// DefaultTimeout bounds a tool call when the agent config sets none.
	DefaultTimeout time.Duration
	// Permissions runs the capability gate. When nil the executor checks the
	// agent's permission set directly.
	Permissions PermissionChecker
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Executor runs tool invocations through a fixed gate sequence: registry
// lookup, agent allow/deny list, JSON schema argument validation, capability
// check, then the timeout-bounded call itself. Every gate failure and every
// call outcome is captured as a core.ToolResult; Execute never panics and
// never returns an error. Most failures re-enter the acting loop as
// observations; capability denials additionally set MissingCapability so the
// orchestrator can terminate the execution.
type Executor struct {
	registry    *Registry
	timeout     time.Duration
	permissions PermissionChecker
	logger      logging.Logger

	// compiled schema cache, keyed by tool name
	schemas sync.Map
}

// NewExecutor creates an Executor bound to a registry.
func NewExecutor(registry *Registry, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{
		DefaultTimeout: core.DefaultToolTimeout,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{
		registry:    registry,
		timeout:     opts.DefaultTimeout,
		permissions: opts.Permissions,
		logger:      opts.Logger,
	}
}

// Execute runs one invocation under the given agent configuration and returns
// its captured result.
func (e *Executor) Execute(ctx context.Context, cfg *core.AgentConfig, inv Invocation) core.ToolResult {
	start := time.Now()
	result := core.ToolResult{Tool: inv.Name, Args: inv.Args}

	fail := func(terr *ToolError) core.ToolResult {
		result.Error = terr.Error()
		result.Elapsed = time.Since(start)
		e.logger.Warn("tool.call.rejected", "tool", inv.Name, "code", terr.Code, "error", terr.Message)
		return result
	}

	if !cfg.ToolAllowed(inv.Name) {
		return fail(NewToolError(inv.Name, "tool not allowed for this agent", CodePermission))
	}

	t, ok := e.registry.Get(inv.Name)
	if !ok {
		return fail(NewToolError(inv.Name, "no such tool registered", CodeNotFound))
	}

	if err := e.validateArgs(t, inv.Args); err != nil {
		return fail(NewToolError(inv.Name, err.Error(), CodeValidation))
	}

	if capability := t.RequiredCapability(); capability != "" {
		if d := e.checkPermission(cfg, capability); !d.Allowed {
			result.MissingCapability = capability
			return fail(NewToolError(inv.Name, d.Reason, CodePermission))
		}
	}

	timeout := cfg.Advanced.ToolTimeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	e.logger.Debug("tool.call.start", "tool", inv.Name, "fc_id", inv.CallID)
	output, err := e.call(callCtx, t, inv.Args)
	result.Elapsed = time.Since(start)

	switch {
	case err != nil:
		code := CodeExecution
		if callCtx.Err() == context.DeadlineExceeded {
			code = CodeTimeout
		}
		var terr *ToolError
		if te, ok := err.(*ToolError); ok {
			terr = te
		} else {
			terr = NewToolError(inv.Name, err.Error(), code)
		}
		result.Error = terr.Error()
		e.logger.Warn("tool.call.failed", "tool", inv.Name, "code", terr.Code,
			"duration_ms", result.Elapsed.Milliseconds())
	default:
		result.Success = true
		result.Output = output
		e.logger.Debug("tool.call.success", "tool", inv.Name,
			"duration_ms", result.Elapsed.Milliseconds())
	}
	return result
}

// checkPermission runs the capability gate, through the wired checker when
// one is configured.
func (e *Executor) checkPermission(cfg *core.AgentConfig, capability core.Capability) core.GuardDecision {
	if e.permissions != nil {
		return e.permissions.CheckPermission(cfg, capability)
	}
	if cfg.Permissions.Has(capability) {
		return core.Allow()
	}
	return core.Block(fmt.Sprintf("agent lacks required capability %q", capability))
}

// call invokes the tool body with panic containment.
func (e *Executor) call(ctx context.Context, t Tool, args map[string]any) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewToolError(t.Name(), fmt.Sprintf("panic: %v", r), CodeExecution)
		}
	}()
	return t.Call(ctx, args)
}

// validateArgs checks args against the tool's declared JSON schema. Compiled
// schemas are cached per tool name; tools with no schema accept anything.
func (e *Executor) validateArgs(t Tool, args map[string]any) error {
	params := t.Parameters()
	if len(params) == 0 {
		return nil
	}

	var schema *jsonschema.Schema
	if cached, ok := e.schemas.Load(t.Name()); ok {
		schema = cached.(*jsonschema.Schema)
	} else {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("invalid parameter schema: %w", err)
		}
		schema, err = jsonschema.CompileString(t.Name()+".json", string(raw))
		if err != nil {
			return fmt.Errorf("invalid parameter schema: %w", err)
		}
		e.schemas.Store(t.Name(), schema)
	}

	// Round-trip through JSON so Go-typed values (int, etc.) take the shapes
	// the validator expects.
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("arguments not serializable: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("arguments not decodable: %w", err)
	}
	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("arguments rejected by schema: %w", err)
	}
	return nil
}
