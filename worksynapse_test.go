package worksynapse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pravin-python/WorkSynapse-sub001/config"
	"github.com/pravin-python/WorkSynapse-sub001/core"
	"github.com/pravin-python/WorkSynapse-sub001/provider"
	"github.com/pravin-python/WorkSynapse-sub001/tool"
)

func newMockSynapse(t *testing.T) (*WorkSynapse, *provider.MockAdapter) {
	t.Helper()

	adapter := provider.NewMockAdapter("mock-1", "mock")
	adapter.SetDefaultText("done")
	router := provider.NewRouter()
	router.RegisterFactory("mock", func(c provider.Config, model string) (provider.Adapter, error) {
		return adapter, nil
	})

	agent := &core.AgentConfig{
		ID:       "assistant",
		UserID:   "u1",
		Name:     "Assistant",
		Provider: "mock",
		Model:    "mock-1",
	}
	ws := New(core.NewStaticConfigStore(agent), func(o *Options) {
		o.Router = router
	})
	ws.ConfigureProvider(provider.Config{Name: "mock", APIKey: "k", DefaultModel: "mock-1"})
	return ws, adapter
}

func TestFacadeExecute(t *testing.T) {
	ws, _ := newMockSynapse(t)

	result := ws.Execute(context.Background(), core.Request{
		AgentID: "assistant",
		UserID:  "u1",
		Message: "hello",
	})
	assert.Equal(t, core.StatusSucceeded, result.Status)
	assert.Equal(t, "done", result.ResponseText)
}

func TestFacadeRegisterTool(t *testing.T) {
	ws, _ := newMockSynapse(t)
	assert.Empty(t, ws.Tools())

	ws.RegisterTool(tool.NewListTasksTool(tool.NewInMemoryTaskService()))
	descriptors := ws.Tools()
	require.Len(t, descriptors, 1)
	assert.Equal(t, "list_tasks", descriptors[0].Name)
}

func TestFacadeStreamAndStop(t *testing.T) {
	ws, _ := newMockSynapse(t)

	var got string
	result := ws.ExecuteStream(context.Background(), core.Request{
		AgentID: "assistant",
		UserID:  "u1",
		Message: "stream",
	}, func(delta string) error {
		got += delta
		return nil
	})
	require.Equal(t, core.StatusSucceeded, result.Status)
	assert.Equal(t, result.ResponseText, got)

	assert.False(t, ws.Stop("no-such-execution"))
}

func TestNewFromConfig(t *testing.T) {
	f, err := config.Parse([]byte(`
providers:
  - name: mock
    api_key: k
    default_model: mock-1
agents:
  - id: assistant
    user_id: u1
    name: Assistant
    provider: mock
`))
	require.NoError(t, err)

	adapter := provider.NewMockAdapter("mock-1", "mock")
	adapter.SetDefaultText("from config")
	router := provider.NewRouter()
	router.RegisterFactory("mock", func(c provider.Config, model string) (provider.Adapter, error) {
		return adapter, nil
	})

	ws := NewFromConfig(f, func(o *Options) { o.Router = router })
	result := ws.Execute(context.Background(), core.Request{
		AgentID: "assistant",
		UserID:  "u1",
		Message: "hi",
	})
	assert.Equal(t, core.StatusSucceeded, result.Status)
	assert.Equal(t, "from config", result.ResponseText)
}
