package core

import "context"

// ConfigStore is the narrow read interface onto the persistence collaborator
// holding agent configurations. Get must fail with an agent-not-found error
// when the agent is missing or not owned by userID.
type ConfigStore interface {
	Get(ctx context.Context, agentID, userID string) (*AgentConfig, error)
}

// ConfigStoreFunc adapts a plain function to a ConfigStore.
type ConfigStoreFunc func(ctx context.Context, agentID, userID string) (*AgentConfig, error)

// Get implements ConfigStore.
func (f ConfigStoreFunc) Get(ctx context.Context, agentID, userID string) (*AgentConfig, error) {
	return f(ctx, agentID, userID)
}

// TurnWriter is the write interface onto the persistence collaborator that
// records completed conversation turns. The engine calls it once per
// successful execution, after the assistant turn is committed to memory;
// write failures are logged but never fail the execution.
type TurnWriter interface {
	WriteTurn(ctx context.Context, execCtx ExecutionContext, records []MemoryRecord) error
}

// TurnWriterFunc adapts a plain function to a TurnWriter.
type TurnWriterFunc func(ctx context.Context, execCtx ExecutionContext, records []MemoryRecord) error

// WriteTurn implements TurnWriter.
func (f TurnWriterFunc) WriteTurn(ctx context.Context, execCtx ExecutionContext, records []MemoryRecord) error {
	return f(ctx, execCtx, records)
}

// StaticConfigStore serves configs from an in-process map keyed by agent id.
// It enforces ownership the same way a persistent store would.
type StaticConfigStore struct {
	configs map[string]*AgentConfig
}

// NewStaticConfigStore builds a store from the given configs.
func NewStaticConfigStore(configs ...*AgentConfig) *StaticConfigStore {
	m := make(map[string]*AgentConfig, len(configs))
	for _, c := range configs {
		m[c.ID] = c
	}
	return &StaticConfigStore{configs: m}
}

// Get implements ConfigStore. The returned config is a clone so executions
// never observe concurrent mutation.
func (s *StaticConfigStore) Get(_ context.Context, agentID, userID string) (*AgentConfig, error) {
	c, ok := s.configs[agentID]
	if !ok || (c.UserID != "" && userID != "" && c.UserID != userID) {
		return nil, NewAgentNotFoundError(agentID)
	}
	return c.Clone(), nil
}
