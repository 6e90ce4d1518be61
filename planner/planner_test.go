package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pravin-python/WorkSynapse-sub001/core"
	"github.com/pravin-python/WorkSynapse-sub001/provider"
	"github.com/pravin-python/WorkSynapse-sub001/tool"
)

func plannerConfig() *core.AgentConfig {
	cfg := &core.AgentConfig{ID: "a1", Name: "A", Provider: "mock", Model: "m"}
	cfg.Advanced.Normalize()
	return cfg
}

func newMockResolver(t *testing.T, text string) (Resolver, *provider.MockAdapter) {
	t.Helper()
	adapter := provider.NewMockAdapter("m", "mock")
	adapter.SetDefaultText(text)
	r := provider.NewRouter()
	r.RegisterFactory("mock", func(cfg provider.Config, model string) (provider.Adapter, error) {
		return adapter, nil
	})
	r.Configure(provider.Config{Name: "mock", APIKey: "k", DefaultModel: "m"})
	return r, adapter
}

func TestSkeletonPlanner(t *testing.T) {
	steps, err := NewSkeletonPlanner().Plan(context.Background(), plannerConfig(), "do things", nil)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, core.StepUnderstand, steps[0].Kind)
	assert.Equal(t, core.StepCallProvider, steps[1].Kind)
	assert.Equal(t, "do things", steps[1].Prompt)
	assert.Equal(t, core.StepFinalize, steps[2].Kind)
}

func TestLLMPlannerParsesModelPlan(t *testing.T) {
	resolver, _ := newMockResolver(t, "```json\n"+
		`[{"kind":"understand"},`+
		`{"kind":"invoke_tool","tool":"list_tasks","args":{}},`+
		`{"kind":"call_provider"},{"kind":"finalize"}]`+"\n```")
	p := NewLLMPlanner(resolver)

	steps, err := p.Plan(context.Background(), plannerConfig(), "list my tasks", []tool.Descriptor{
		{Name: "list_tasks", Description: "List tasks"},
	})
	require.NoError(t, err)
	require.Len(t, steps, 4)
	assert.Equal(t, core.StepInvokeTool, steps[1].Kind)
	assert.Equal(t, "list_tasks", steps[1].Tool)
}

func TestLLMPlannerSplicesRequiredSteps(t *testing.T) {
	resolver, _ := newMockResolver(t, `[{"kind":"invoke_tool","tool":"list_tasks"}]`)
	p := NewLLMPlanner(resolver)

	steps, err := p.Plan(context.Background(), plannerConfig(), "go", nil)
	require.NoError(t, err)
	var kinds []core.StepKind
	for _, s := range steps {
		kinds = append(kinds, s.Kind)
	}
	assert.Contains(t, kinds, core.StepCallProvider)
	assert.Contains(t, kinds, core.StepFinalize)
}

func TestLLMPlannerFallsBackOnGarbage(t *testing.T) {
	resolver, _ := newMockResolver(t, "I think you should probably just answer directly.")
	p := NewLLMPlanner(resolver)

	steps, err := p.Plan(context.Background(), plannerConfig(), "hello", nil)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, core.StepCallProvider, steps[1].Kind)
}

func TestLLMPlannerFallsBackOnProviderFault(t *testing.T) {
	resolver, adapter := newMockResolver(t, "unused")
	adapter.ScriptedErrors = []error{provider.NewTransportError("mock", nil)}
	p := NewLLMPlanner(resolver)

	steps, err := p.Plan(context.Background(), plannerConfig(), "hello", nil)
	require.NoError(t, err)
	require.Len(t, steps, 3)
}

func TestLLMPlannerFallsBackOnUnresolvedProvider(t *testing.T) {
	p := NewLLMPlanner(provider.NewRouter())
	steps, err := p.Plan(context.Background(), plannerConfig(), "hello", nil)
	require.NoError(t, err)
	require.Len(t, steps, 3)
}

func TestLLMPlannerTruncatesOversizedPlans(t *testing.T) {
	plan := "["
	for i := 0; i < 30; i++ {
		if i > 0 {
			plan += ","
		}
		plan += `{"kind":"invoke_tool","tool":"t"}`
	}
	plan += "]"
	resolver, _ := newMockResolver(t, plan)
	p := NewLLMPlanner(resolver, func(o *LLMPlannerOptions) { o.MaxSteps = 5 })

	steps, err := p.Plan(context.Background(), plannerConfig(), "go", nil)
	require.NoError(t, err)
	// 5 kept steps plus the spliced provider/finalize steps.
	assert.Len(t, steps, 7)
}
