package memory

import (
	"context"
	"sync"
)

// SessionStore is the per-thread key/value scratchpad. Writes are last-write-
// wins; the scratchpad never participates in the token-budgeted context
// assembly directly, tools and planners read it explicitly.
type SessionStore interface {
	Get(ctx context.Context, threadID string) (map[string]any, error)
	Put(ctx context.Context, threadID string, delta map[string]any) error
	ClearThread(ctx context.Context, threadID string) error
}

// InMemorySessionStore is a volatile SessionStore storing scratchpads in a
// process-local map. Returned maps are shallow copies to prevent external
// mutation of internal state.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]any
}

// NewInMemorySessionStore constructs an empty session store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]map[string]any)}
}

// Get returns a shallow copy of the scratchpad for the thread.
func (s *InMemorySessionStore) Get(ctx context.Context, threadID string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	scratch, ok := s.sessions[threadID]
	if !ok {
		return make(map[string]any), nil
	}
	out := make(map[string]any, len(scratch))
	for k, v := range scratch {
		out[k] = v
	}
	return out, nil
}

// Put merges the provided delta into the thread's scratchpad, last write wins.
func (s *InMemorySessionStore) Put(ctx context.Context, threadID string, delta map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	scratch, ok := s.sessions[threadID]
	if !ok {
		scratch = make(map[string]any)
		s.sessions[threadID] = scratch
	}
	for k, v := range delta {
		scratch[k] = v
	}
	return nil
}

// ClearThread drops the thread's scratchpad entirely.
func (s *InMemorySessionStore) ClearThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, threadID)
	return nil
}
