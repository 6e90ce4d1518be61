// Package engine orchestrates agent executions. One Execute call walks a
// fixed state sequence (init, guarded, planning, acting, responding) and
// always produces exactly one ExecutionResult, whatever fails along the way.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pravin-python/WorkSynapse-sub001/core"
	"github.com/pravin-python/WorkSynapse-sub001/guard"
	"github.com/pravin-python/WorkSynapse-sub001/logging"
	"github.com/pravin-python/WorkSynapse-sub001/memory"
	"github.com/pravin-python/WorkSynapse-sub001/planner"
	"github.com/pravin-python/WorkSynapse-sub001/provider"
	"github.com/pravin-python/WorkSynapse-sub001/tool"
)

// State labels a phase of the execution lifecycle, for logging.
type State string

// Lifecycle states.
const (
	StateInit       State = "init"
	StateGuarded    State = "guarded"
	StatePlanning   State = "planning"
	StateActing     State = "acting"
	StateResponding State = "responding"
	StateDone       State = "done"
	StateError      State = "error"
)

// errIterationLimit terminates the acting loop when the configured iteration
// cap is reached before a final response.
var errIterationLimit = errors.New("iteration limit reached")

// Options configures an Engine instance. All collaborators have working
// defaults except the Router and ConfigStore, which carry deployment-specific
// state and must be supplied.
type Options struct {
	// Router resolves provider/model bindings. Required.
	Router *provider.Router

	// Configs loads agent configurations. Required.
	Configs core.ConfigStore

	// Registry catalogs callable tools. Defaults to an empty registry.
	Registry *tool.Registry

	// Executor runs tool invocations. Defaults to one over Registry.
	Executor *tool.Executor

	// Memory manages the three memory kinds. Defaults to in-memory stores.
	Memory *memory.Manager

	// Guard runs pre-flight security checks. Defaults to guard.New().
	Guard *guard.Guard

	// Planner refines plans when an agent enables planning. Defaults to the
	// skeleton planner, making EnablePlanning a no-op.
	Planner planner.Planner

	// Retry is the backoff policy template for provider calls; MaxRetries and
	// Budget are overridden per execution from the agent config.
	Retry provider.RetryPolicy

	// Turns, when set, receives each completed turn for durable persistence.
	// Write failures are logged, never surfaced on the execution result.
	Turns core.TurnWriter

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Engine coordinates router, guard, planner, memory and tool executor into
// the agent execution loop. Safe for concurrent use; each execution is
// independent apart from shared per-thread memory serialization.
type Engine struct {
	router   *provider.Router
	configs  core.ConfigStore
	registry *tool.Registry
	executor *tool.Executor
	memory   *memory.Manager
	guard    *guard.Guard
	planner  planner.Planner
	skeleton *planner.SkeletonPlanner
	retry    provider.RetryPolicy
	turns    core.TurnWriter
	logger   logging.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// New creates an Engine.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Retry:  provider.DefaultRetryPolicy(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Registry == nil {
		opts.Registry = tool.NewRegistry()
	}
	if opts.Guard == nil {
		opts.Guard = guard.New(func(o *guard.Options) {
			o.Logger = opts.Logger
		})
	}
	if opts.Executor == nil {
		opts.Executor = tool.NewExecutor(opts.Registry, func(o *tool.ExecutorOptions) {
			o.Permissions = opts.Guard
			o.Logger = opts.Logger
		})
	}
	if opts.Memory == nil {
		opts.Memory = memory.NewManager(func(o *memory.ManagerOptions) {
			o.Logger = opts.Logger
		})
	}
	skeleton := planner.NewSkeletonPlanner()
	if opts.Planner == nil {
		opts.Planner = skeleton
	}
	return &Engine{
		router:   opts.Router,
		configs:  opts.Configs,
		registry: opts.Registry,
		executor: opts.Executor,
		memory:   opts.Memory,
		guard:    opts.Guard,
		planner:  opts.Planner,
		skeleton: skeleton,
		retry:    opts.Retry,
		turns:    opts.Turns,
		logger:   opts.Logger,
	}
}

// Execute runs one agent execution to completion and returns its single
// structured result. Failures are reported through the result's status and
// error kind, never by panicking or returning nothing.
func (e *Engine) Execute(ctx context.Context, req core.Request) *core.ExecutionResult {
	return e.run(ctx, req, nil)
}

// ExecuteStream behaves like Execute but forwards incremental response text
// to onDelta as it arrives from the provider.
func (e *Engine) ExecuteStream(ctx context.Context, req core.Request, onDelta func(delta string) error) *core.ExecutionResult {
	return e.run(ctx, req, onDelta)
}

// Stop cancels a running execution by id. It reports whether an active
// execution was found; the cancelled execution still emits its result with a
// cancelled status.
func (e *Engine) Stop(executionID string) bool {
	e.mu.Lock()
	cancel, ok := e.active[executionID]
	e.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Active returns the ids of currently running executions.
func (e *Engine) Active() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.active))
	for id := range e.active {
		ids = append(ids, id)
	}
	return ids
}

// track registers the cancel func of a running execution.
func (e *Engine) track(executionID string, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		e.active = make(map[string]context.CancelFunc)
	}
	e.active[executionID] = cancel
}

func (e *Engine) untrack(executionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, executionID)
}

func (e *Engine) run(ctx context.Context, req core.Request, onDelta func(string) error) *core.ExecutionResult {
	start := time.Now()
	execCtx := core.NewExecutionContext(req)
	result := &core.ExecutionResult{ExecutionID: execCtx.ExecutionID}

	fail := func(state State, err error) *core.ExecutionResult {
		result.Status = core.StatusFor(err)
		result.ErrorKind = core.KindOf(err)
		var ce *core.Error
		if errors.As(err, &ce) {
			result.Message = ce.Message
		} else {
			result.Message = err.Error()
		}
		result.Duration = time.Since(start)
		e.logger.Error("execution.failed",
			"execution_id", execCtx.ExecutionID,
			"agent_id", execCtx.AgentID,
			"state", string(state),
			"error_kind", string(result.ErrorKind),
			"error", err.Error(),
		)
		return result
	}

	// Init: load, normalize and validate the agent configuration, then bind
	// the provider so misconfiguration fails before any side effects.
	e.logger.Debug("execution.state", "execution_id", execCtx.ExecutionID, "state", string(StateInit))
	cfg, err := e.configs.Get(ctx, req.AgentID, req.UserID)
	if err != nil {
		return fail(StateInit, err)
	}
	cfg = cfg.Clone()
	cfg.Advanced.Normalize()
	if err := cfg.Validate(); err != nil {
		return fail(StateInit, err)
	}

	handle, err := e.router.Resolve(cfg.Provider, cfg.Model)
	if err != nil {
		return fail(StateInit, core.NewConfigurationError(err.Error(), err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.track(execCtx.ExecutionID, cancel)
	defer e.untrack(execCtx.ExecutionID)

	deadline := time.Now().Add(cfg.Advanced.Timeout())
	runCtx, cancelDeadline := context.WithDeadline(runCtx, deadline)
	defer cancelDeadline()

	// Guarded: rate budget first, then injection screening.
	e.logger.Debug("execution.state", "execution_id", execCtx.ExecutionID, "state", string(StateGuarded))
	if d := e.guard.CheckRate(execCtx.AgentID, execCtx.UserID); !d.Allowed {
		return fail(StateGuarded, core.NewRateLimitedError(d.Reason))
	}
	if d := e.guard.CheckInbound(execCtx, req.Message); !d.Allowed {
		return fail(StateGuarded, core.NewPromptInjectionError(d.Reason))
	}

	// Planning: tools visible to this agent, then skeleton or LLM refinement.
	e.logger.Debug("execution.state", "execution_id", execCtx.ExecutionID, "state", string(StatePlanning))
	descriptors := e.visibleTools(cfg)
	pl := planner.Planner(e.skeleton)
	if cfg.Advanced.EnablePlanning {
		pl = e.planner
	}
	steps, err := pl.Plan(runCtx, cfg, req.Message, descriptors)
	if err != nil || len(steps) == 0 {
		steps, _ = e.skeleton.Plan(runCtx, cfg, req.Message, descriptors)
	}

	userRec := core.NewMemoryRecord(execCtx.ThreadID, core.RoleUser, req.Message)
	if err := e.memory.Append(runCtx, userRec); err != nil {
		return fail(StatePlanning, err)
	}

	// Acting: walk the plan under the shared iteration budget.
	e.logger.Debug("execution.state", "execution_id", execCtx.ExecutionID, "state", string(StateActing))
	retry := e.retry
	retry.MaxRetries = cfg.Advanced.MaxRetries
	retry.Budget = func() time.Duration { return time.Until(deadline) }
	retry.OnRetry = func(attempt int, err error, delay time.Duration) {
		e.logger.Warn("provider.retry",
			"execution_id", execCtx.ExecutionID,
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"error", err.Error(),
		)
	}

	iterations := 0
	var responseText string
	for _, step := range steps {
		if err := runCtx.Err(); err != nil {
			return fail(StateActing, err)
		}
		switch step.Kind {
		case core.StepUnderstand, core.StepFinalize:
			e.logger.Debug("execution.step", "execution_id", execCtx.ExecutionID, "step", step.Kind.String())
		case core.StepInvokeTool:
			if iterations >= cfg.Advanced.MaxIterations {
				return fail(StateActing, errIterationLimit)
			}
			iterations++
			res := e.invokeTool(runCtx, cfg, execCtx, tool.Invocation{
				Name:   step.Tool,
				Args:   step.Args,
				CallID: core.NewID(),
			}, result)
			if res.MissingCapability != "" {
				return fail(StateActing, core.NewPermissionDeniedError(string(res.MissingCapability)))
			}
		case core.StepCallProvider:
			text, err := e.converse(runCtx, cfg, execCtx, req.Message, handle, descriptors, retry, &iterations, result, onDelta)
			if err != nil {
				return fail(StateActing, err)
			}
			responseText = text
		}
	}

	// Responding: persist the assistant turn and assemble the result.
	e.logger.Debug("execution.state", "execution_id", execCtx.ExecutionID, "state", string(StateResponding))
	turn := []core.MemoryRecord{userRec}
	if responseText != "" {
		asstRec := core.NewMemoryRecord(execCtx.ThreadID, core.RoleAssistant, responseText)
		if err := e.memory.Append(runCtx, asstRec); err != nil {
			return fail(StateResponding, err)
		}
		turn = append(turn, asstRec)
	}
	if e.turns != nil {
		if err := e.turns.WriteTurn(runCtx, execCtx, turn); err != nil {
			e.logger.Warn("execution.turn_write_failed",
				"execution_id", execCtx.ExecutionID, "error", err.Error())
		}
	}

	result.Status = core.StatusSucceeded
	result.ResponseText = responseText
	result.CostEstimate = EstimateCost(handle.Provider(), handle.Model(), result.Usage)
	result.Duration = time.Since(start)
	e.logger.Info("execution.done",
		"execution_id", execCtx.ExecutionID,
		"agent_id", execCtx.AgentID,
		"state", string(StateDone),
		"iterations", iterations,
		"tool_calls", len(result.ToolCalls),
		"tokens", result.Usage.Total(),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result
}

// converse runs the provider round loop: call the model, execute any tool
// calls it requests, feed results back, and repeat until the model answers in
// plain text or the iteration budget runs out.
func (e *Engine) converse(
	ctx context.Context,
	cfg *core.AgentConfig,
	execCtx core.ExecutionContext,
	message string,
	handle *provider.Handle,
	descriptors []tool.Descriptor,
	retry provider.RetryPolicy,
	iterations *int,
	result *core.ExecutionResult,
	onDelta func(string) error,
) (string, error) {
	records, err := e.memory.BuildContext(ctx, cfg, execCtx.ThreadID, message)
	if err != nil {
		return "", err
	}
	messages := toProviderMessages(records)
	// Session-kind agents assemble no conversational context; the inbound
	// message still has to reach the model.
	if len(messages) == 0 {
		messages = []provider.Message{{Role: core.RoleUser, Content: message}}
	}
	tools := toDefinitions(descriptors)

	for {
		if *iterations >= cfg.Advanced.MaxIterations {
			return "", errIterationLimit
		}
		*iterations++

		preq := provider.Request{
			System:   cfg.SystemPrompt,
			Messages: messages,
			Tools:    tools,
		}
		// An attempt can fail mid-stream after deltas were already forwarded.
		// Retry attempts buffer their output and flush only the text beyond
		// what the consumer has seen, so deltas are never replayed.
		emitted := 0
		attempt := 0
		resp, err := retry.Do(ctx, func() (*provider.Response, error) {
			if onDelta == nil {
				return handle.Generate(ctx, preq)
			}
			attempt++
			if attempt == 1 {
				return handle.GenerateStream(ctx, preq, func(delta string) error {
					emitted += len(delta)
					return onDelta(delta)
				})
			}
			var buf strings.Builder
			r, err := handle.GenerateStream(ctx, preq, func(delta string) error {
				buf.WriteString(delta)
				return nil
			})
			if err != nil {
				return nil, err
			}
			if full := buf.String(); emitted < len(full) {
				if err := onDelta(full[emitted:]); err != nil {
					return nil, err
				}
				emitted = len(full)
			}
			return r, nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", core.NewProviderError("provider call failed", err)
		}
		result.Usage.Add(resp.Usage)

		if len(resp.ToolCalls) == 0 {
			return resp.Text, nil
		}

		messages = append(messages, provider.Message{
			Role:      core.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			if *iterations >= cfg.Advanced.MaxIterations {
				return "", errIterationLimit
			}
			*iterations++

			args := map[string]any{}
			if tc.Arguments != "" {
				if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
					args = map[string]any{}
				}
			}
			res := e.invokeTool(ctx, cfg, execCtx, tool.Invocation{
				Name:   tc.Name,
				Args:   args,
				CallID: tc.ID,
			}, result)
			// Permission faults are unrecoverable; the execution ends here
			// instead of feeding the denial back to the model.
			if res.MissingCapability != "" {
				return "", core.NewPermissionDeniedError(string(res.MissingCapability))
			}

			messages = append(messages, provider.Message{
				Role:       core.RoleTool,
				Content:    toolObservation(res),
				ToolCallID: tc.ID,
			})
		}
	}
}

// invokeTool runs one tool call, records the result on the execution and in
// memory, and returns it. Failures become observations, not execution faults.
func (e *Engine) invokeTool(
	ctx context.Context,
	cfg *core.AgentConfig,
	execCtx core.ExecutionContext,
	inv tool.Invocation,
	result *core.ExecutionResult,
) core.ToolResult {
	res := e.executor.Execute(ctx, cfg, inv)
	result.ToolCalls = append(result.ToolCalls, res)

	rec := core.NewMemoryRecord(execCtx.ThreadID, core.RoleTool, toolObservation(res))
	rec.Metadata = map[string]any{"tool": res.Tool, "success": res.Success}
	if err := e.memory.Append(ctx, rec); err != nil {
		e.logger.Warn("execution.memory_append_failed",
			"execution_id", execCtx.ExecutionID, "error", err.Error())
	}
	return res
}

// visibleTools returns the registered tools that pass the agent's allow/deny
// lists.
func (e *Engine) visibleTools(cfg *core.AgentConfig) []tool.Descriptor {
	all := e.registry.List()
	out := make([]tool.Descriptor, 0, len(all))
	for _, d := range all {
		if cfg.ToolAllowed(d.Name) {
			out = append(out, d)
		}
	}
	return out
}

// toolObservation renders a tool result as model-readable text.
func toolObservation(res core.ToolResult) string {
	if !res.Success {
		return fmt.Sprintf("tool %s failed: %s", res.Tool, res.Error)
	}
	payload, err := json.Marshal(res.Output)
	if err != nil {
		return fmt.Sprintf("%v", res.Output)
	}
	return string(payload)
}

// toProviderMessages converts memory records into provider turns. Tool
// records carry no live call id across executions, so they are rendered as
// plain user-visible observations instead of wire-level tool messages.
func toProviderMessages(records []core.MemoryRecord) []provider.Message {
	out := make([]provider.Message, 0, len(records))
	for _, rec := range records {
		switch rec.Role {
		case core.RoleTool:
			toolName, _ := rec.Metadata["tool"].(string)
			out = append(out, provider.Message{
				Role:    core.RoleUser,
				Content: fmt.Sprintf("[tool %s result] %s", toolName, rec.Content),
			})
		case core.RoleSystem:
			// System context travels through Request.System only.
		default:
			out = append(out, provider.Message{Role: rec.Role, Content: rec.Content})
		}
	}
	return out
}

// toDefinitions converts descriptors into provider tool definitions.
func toDefinitions(descriptors []tool.Descriptor) []provider.ToolDefinition {
	if len(descriptors) == 0 {
		return nil
	}
	out := make([]provider.ToolDefinition, len(descriptors))
	for i, d := range descriptors {
		out[i] = provider.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		}
	}
	return out
}
