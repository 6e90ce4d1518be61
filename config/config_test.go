package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pravin-python/WorkSynapse-sub001/core"
)

const sampleConfig = `
providers:
  - name: openai
    api_key: ${TEST_OPENAI_KEY}
    default_model: gpt-4o-mini
  - name: anthropic
    api_key: sk-ant-static
    timeout: 30s

agents:
  - id: assistant
    user_id: u1
    name: Project Assistant
    provider: openai
    system_prompt: You help with project management.
    permissions:
      can_modify_data: true
    denied_tools: [run_code]
    memory_kind: conversation
    advanced:
      max_iterations: 4
`

func TestParse(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")

	f, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)
	require.Len(t, f.Providers, 2)
	assert.Equal(t, "sk-from-env", f.Providers[0].APIKey.Reveal())
	assert.Equal(t, "gpt-4o-mini", f.Providers[0].DefaultModel)

	agent, ok := f.Agent("assistant")
	require.True(t, ok)
	assert.Equal(t, "openai", agent.Provider)
	assert.True(t, agent.Permissions.ModifyData)
	assert.False(t, agent.ToolAllowed("run_code"))
	// Partial advanced blocks still get defaults.
	assert.Equal(t, 4, agent.Advanced.MaxIterations)
	assert.Equal(t, core.DefaultTimeoutSeconds, agent.Advanced.TimeoutSeconds)
}

func TestParseRejectsDuplicateProviders(t *testing.T) {
	_, err := Parse([]byte(`
providers:
  - name: openai
    api_key: a
  - name: openai
    api_key: b
`))
	require.Error(t, err)
	assert.Equal(t, core.KindConfiguration, core.KindOf(err))
}

func TestParseRejectsInvalidAgent(t *testing.T) {
	_, err := Parse([]byte(`
agents:
  - id: broken
    name: No Provider
`))
	require.Error(t, err)
	assert.Equal(t, core.KindConfiguration, core.KindOf(err))
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("providers: [\n"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))
	t.Setenv("TEST_OPENAI_KEY", "sk-file-env")

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file-env", f.Providers[0].APIKey.Reveal())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
