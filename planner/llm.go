package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pravin-python/WorkSynapse-sub001/core"
	"github.com/pravin-python/WorkSynapse-sub001/logging"
	"github.com/pravin-python/WorkSynapse-sub001/provider"
	"github.com/pravin-python/WorkSynapse-sub001/tool"
)

// planPrompt instructs the model to emit a strict JSON step array.
const planPrompt = `You are a planning assistant. Given a user request and the available tools,
produce a JSON array of steps. Each step is an object with:
  "kind": one of "understand", "invoke_tool", "call_provider", "finalize"
  "tool": tool name (invoke_tool only)
  "args": tool arguments object (invoke_tool only)
Respond with the JSON array only, no prose.`

// Resolver resolves a provider/model binding; satisfied by provider.Router.
type Resolver interface {
	Resolve(providerName, modelName string) (*provider.Handle, error)
}

// LLMPlannerOptions configure an LLMPlanner.
type LLMPlannerOptions struct {
	// MaxSteps truncates oversized model plans.
	MaxSteps int
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// LLMPlanner asks the agent's own model for a refined plan. Any fault,
// resolution, generation or parsing, degrades to the skeleton plan.
type LLMPlanner struct {
	resolver Resolver
	fallback *SkeletonPlanner
	maxSteps int
	logger   logging.Logger
}

// NewLLMPlanner creates an LLMPlanner over the given resolver.
func NewLLMPlanner(resolver Resolver, optFns ...func(o *LLMPlannerOptions)) *LLMPlanner {
	opts := LLMPlannerOptions{
		MaxSteps: 12,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &LLMPlanner{
		resolver: resolver,
		fallback: NewSkeletonPlanner(),
		maxSteps: opts.MaxSteps,
		logger:   opts.Logger,
	}
}

// Plan implements Planner.
func (p *LLMPlanner) Plan(ctx context.Context, cfg *core.AgentConfig, message string, tools []tool.Descriptor) ([]core.ExecutionStep, error) {
	handle, err := p.resolver.Resolve(cfg.Provider, cfg.Model)
	if err != nil {
		p.logger.Warn("planner.fallback", "agent_id", cfg.ID, "error", err.Error())
		return p.fallback.Plan(ctx, cfg, message, tools)
	}

	resp, err := handle.Generate(ctx, provider.Request{
		System: planPrompt,
		Messages: []provider.Message{
			{Role: core.RoleUser, Content: p.describe(message, tools)},
		},
	})
	if err != nil {
		p.logger.Warn("planner.fallback", "agent_id", cfg.ID, "error", err.Error())
		return p.fallback.Plan(ctx, cfg, message, tools)
	}

	steps, err := p.parse(resp.Text)
	if err != nil || len(steps) == 0 {
		p.logger.Warn("planner.unparseable", "agent_id", cfg.ID)
		return p.fallback.Plan(ctx, cfg, message, tools)
	}
	if len(steps) > p.maxSteps {
		steps = steps[:p.maxSteps]
	}

	// The loop needs a provider step to produce a response; splice one in
	// when the model omitted it.
	if !hasKind(steps, core.StepCallProvider) {
		steps = append(steps, core.ExecutionStep{Kind: core.StepCallProvider, Prompt: message})
	}
	if !hasKind(steps, core.StepFinalize) {
		steps = append(steps, core.ExecutionStep{Kind: core.StepFinalize})
	}
	return steps, nil
}

// describe renders the planning input for the model.
func (p *LLMPlanner) describe(message string, tools []tool.Descriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n\nAvailable tools:\n", message)
	if len(tools) == 0 {
		b.WriteString("(none)\n")
	}
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	return b.String()
}

// parse decodes the model's JSON plan, tolerating code fences.
func (p *LLMPlanner) parse(text string) ([]core.ExecutionStep, error) {
	text = strings.TrimSpace(text)
	if start := strings.Index(text, "["); start >= 0 {
		if end := strings.LastIndex(text, "]"); end > start {
			text = text[start : end+1]
		}
	}

	var raw []struct {
		Kind string         `json:"kind"`
		Tool string         `json:"tool,omitempty"`
		Args map[string]any `json:"args,omitempty"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}

	steps := make([]core.ExecutionStep, 0, len(raw))
	for _, r := range raw {
		var kind core.StepKind
		switch r.Kind {
		case "understand":
			kind = core.StepUnderstand
		case "invoke_tool":
			kind = core.StepInvokeTool
		case "call_provider":
			kind = core.StepCallProvider
		case "finalize":
			kind = core.StepFinalize
		default:
			continue
		}
		steps = append(steps, core.ExecutionStep{Kind: kind, Tool: r.Tool, Args: r.Args})
	}
	return steps, nil
}

func hasKind(steps []core.ExecutionStep, kind core.StepKind) bool {
	for _, s := range steps {
		if s.Kind == kind {
			return true
		}
	}
	return false
}
