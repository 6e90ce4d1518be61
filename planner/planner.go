// Package planner produces the ordered step list an execution works through.
// The default skeleton plan needs no model call; the LLM-backed planner asks
// the agent's own model to refine the skeleton and falls back to it on any
// provider fault, so planning can never fail an execution.
package planner

import (
	"context"

	"github.com/pravin-python/WorkSynapse-sub001/core"
	"github.com/pravin-python/WorkSynapse-sub001/tool"
)

// Planner turns an inbound message into an ordered list of execution steps.
// Plans are advisory: the acting loop still enforces iteration and timeout
// limits regardless of plan length.
type Planner interface {
	Plan(ctx context.Context, cfg *core.AgentConfig, message string, tools []tool.Descriptor) ([]core.ExecutionStep, error)
}

// SkeletonPlanner emits the fixed three-step plan: understand the request,
// call the provider (which may request tools), finalize the response.
type SkeletonPlanner struct{}

// NewSkeletonPlanner creates a SkeletonPlanner.
func NewSkeletonPlanner() *SkeletonPlanner { return &SkeletonPlanner{} }

// Plan implements Planner.
func (p *SkeletonPlanner) Plan(_ context.Context, _ *core.AgentConfig, message string, _ []tool.Descriptor) ([]core.ExecutionStep, error) {
	return []core.ExecutionStep{
		{Kind: core.StepUnderstand},
		{Kind: core.StepCallProvider, Prompt: message},
		{Kind: core.StepFinalize},
	}, nil
}
