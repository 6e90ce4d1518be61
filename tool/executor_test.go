package tool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pravin-python/WorkSynapse-sub001/core"
)

func echoTool() *FunctionTool {
	return NewFunctionTool(
		"echo",
		"Echo the input back",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			return args["text"], nil
		},
	)
}

func testConfig() *core.AgentConfig {
	cfg := &core.AgentConfig{ID: "a1", Name: "Agent", Provider: "mock"}
	cfg.Advanced.Normalize()
	return cfg
}

func TestRegistryRegisterLastWins(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFunctionTool("dup", "first", nil, func(ctx context.Context, args map[string]any) (any, error) {
		return "first", nil
	}))
	r.Register(NewFunctionTool("dup", "second", nil, func(ctx context.Context, args map[string]any) (any, error) {
		return "second", nil
	}))

	tl, ok := r.Get("dup")
	require.True(t, ok)
	assert.Equal(t, "second", tl.Description())
	assert.Len(t, r.Names(), 1)
}

func TestRegistryListByTag(t *testing.T) {
	r := NewRegistry()
	svc := NewInMemoryTaskService()
	r.Register(NewCreateTaskTool(svc))
	r.Register(NewListTasksTool(svc))
	r.Register(NewSearchWebTool(fetcherFunc(func(ctx context.Context, q string) (string, error) {
		return "", nil
	})))

	assert.Len(t, r.List(), 3)
	assert.Len(t, r.List("tasks"), 2)
	assert.Len(t, r.List("web"), 1)
	assert.Empty(t, r.List("missing"))
}

type fetcherFunc func(ctx context.Context, query string) (string, error)

func (f fetcherFunc) Fetch(ctx context.Context, query string) (string, error) { return f(ctx, query) }

func TestExecutorSuccess(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool())
	e := NewExecutor(r)

	res := e.Execute(context.Background(), testConfig(), Invocation{
		Name: "echo",
		Args: map[string]any{"text": "hi"},
	})
	assert.True(t, res.Success)
	assert.Equal(t, "hi", res.Output)
	assert.Empty(t, res.Error)
	assert.GreaterOrEqual(t, res.Elapsed, time.Duration(0))
}

func TestExecutorUnknownTool(t *testing.T) {
	e := NewExecutor(NewRegistry())
	res := e.Execute(context.Background(), testConfig(), Invocation{Name: "ghost"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, CodeNotFound)
}

func TestExecutorSchemaValidation(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool())
	e := NewExecutor(r)

	// Missing required field.
	res := e.Execute(context.Background(), testConfig(), Invocation{
		Name: "echo",
		Args: map[string]any{},
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, CodeValidation)

	// Wrong type.
	res = e.Execute(context.Background(), testConfig(), Invocation{
		Name: "echo",
		Args: map[string]any{"text": 42},
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, CodeValidation)
}

func TestExecutorPermissionGate(t *testing.T) {
	r := NewRegistry()
	r.Register(NewSearchWebTool(fetcherFunc(func(ctx context.Context, q string) (string, error) {
		return "results", nil
	})))
	e := NewExecutor(r)

	cfg := testConfig()
	res := e.Execute(context.Background(), cfg, Invocation{
		Name: "search_web",
		Args: map[string]any{"query": "golang"},
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, CodePermission)
	// The denial names the missing capability and flags it for the caller.
	assert.Contains(t, res.Error, string(core.CapabilityInternetAccess))
	assert.Equal(t, core.CapabilityInternetAccess, res.MissingCapability)

	cfg.Permissions.InternetAccess = true
	res = e.Execute(context.Background(), cfg, Invocation{
		Name: "search_web",
		Args: map[string]any{"query": "golang"},
	})
	assert.True(t, res.Success)
	assert.Equal(t, "results", res.Output)
}

// permissionCheckerFunc adapts a function to the PermissionChecker interface.
type permissionCheckerFunc func(cfg *core.AgentConfig, capability core.Capability) core.GuardDecision

func (f permissionCheckerFunc) CheckPermission(cfg *core.AgentConfig, capability core.Capability) core.GuardDecision {
	return f(cfg, capability)
}

func TestExecutorDelegatesPermissionCheck(t *testing.T) {
	r := NewRegistry()
	r.Register(NewSearchWebTool(fetcherFunc(func(ctx context.Context, q string) (string, error) {
		return "results", nil
	})))

	var asked core.Capability
	e := NewExecutor(r, func(o *ExecutorOptions) {
		o.Permissions = permissionCheckerFunc(func(cfg *core.AgentConfig, capability core.Capability) core.GuardDecision {
			asked = capability
			return core.Block("policy says no")
		})
	})

	cfg := testConfig()
	cfg.Permissions.InternetAccess = true // the wired checker overrides the set
	res := e.Execute(context.Background(), cfg, Invocation{
		Name: "search_web",
		Args: map[string]any{"query": "golang"},
	})
	assert.False(t, res.Success)
	assert.Equal(t, core.CapabilityInternetAccess, asked)
	assert.Contains(t, res.Error, "policy says no")
	assert.Equal(t, core.CapabilityInternetAccess, res.MissingCapability)
}

func TestExecutorDenyListBeforeLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool())
	e := NewExecutor(r)

	cfg := testConfig()
	cfg.DeniedTools = []string{"echo"}
	res := e.Execute(context.Background(), cfg, Invocation{
		Name: "echo",
		Args: map[string]any{"text": "hi"},
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, CodePermission)
}

func TestExecutorTimeout(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFunctionTool("sleepy", "Sleeps", nil,
		func(ctx context.Context, args map[string]any) (any, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return "done", nil
			}
		}))
	e := NewExecutor(r)

	cfg := testConfig()
	cfg.Advanced.ToolTimeout = 20 * time.Millisecond
	res := e.Execute(context.Background(), cfg, Invocation{Name: "sleepy"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, CodeTimeout)
	assert.Less(t, res.Elapsed, time.Second)
}

func TestExecutorPanicRecovery(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFunctionTool("bomb", "Panics", nil,
		func(ctx context.Context, args map[string]any) (any, error) {
			panic("kaboom")
		}))
	e := NewExecutor(r)

	res := e.Execute(context.Background(), testConfig(), Invocation{Name: "bomb"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "kaboom")
}

func TestExecutorToolErrorPassthrough(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFunctionTool("strict", "Fails typed", nil,
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, NewToolError("strict", "quota exhausted", "QUOTA")
		}))
	e := NewExecutor(r)

	res := e.Execute(context.Background(), testConfig(), Invocation{Name: "strict"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "QUOTA")
	assert.Contains(t, res.Error, "quota exhausted")
}

func TestBuiltinTaskTools(t *testing.T) {
	svc := NewInMemoryTaskService()
	r := NewRegistry()
	r.Register(NewCreateTaskTool(svc))
	r.Register(NewListTasksTool(svc))
	r.Register(NewAddNoteTool(svc))
	e := NewExecutor(r)

	cfg := testConfig()
	cfg.Permissions.ModifyData = true

	res := e.Execute(context.Background(), cfg, Invocation{
		Name: "create_task",
		Args: map[string]any{"title": "Ship v1", "description": "Cut the release"},
	})
	require.True(t, res.Success, "create_task failed: %s", res.Error)
	task, ok := res.Output.(*Task)
	require.True(t, ok)
	assert.Equal(t, "Ship v1", task.Title)

	res = e.Execute(context.Background(), cfg, Invocation{
		Name: "add_note",
		Args: map[string]any{"task_id": task.ID, "note": "blocked on review"},
	})
	require.True(t, res.Success, "add_note failed: %s", res.Error)

	res = e.Execute(context.Background(), cfg, Invocation{Name: "list_tasks", Args: map[string]any{}})
	require.True(t, res.Success)
	tasks, ok := res.Output.([]Task)
	require.True(t, ok)
	require.Len(t, tasks, 1)
	assert.Equal(t, []string{"blocked on review"}, tasks[0].Notes)
}

func TestInMemoryTaskServiceErrors(t *testing.T) {
	svc := NewInMemoryTaskService()
	_, err := svc.CreateTask(context.Background(), "", "")
	assert.Error(t, err)
	assert.Error(t, svc.AddNote(context.Background(), "missing", "note"))
}
