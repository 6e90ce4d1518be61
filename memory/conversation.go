package memory

import (
	"context"
	"sync"

	"github.com/pravin-python/WorkSynapse-sub001/core"
)

// ConversationStore is the ordered, append-only conversation log. History
// returns records in chronological order; limit <= 0 means everything.
type ConversationStore interface {
	Append(ctx context.Context, rec core.MemoryRecord) error
	History(ctx context.Context, threadID string, limit int) ([]core.MemoryRecord, error)
	ClearThread(ctx context.Context, threadID string) error
}

// InMemoryConversationStore is a volatile ConversationStore backed by a
// process-local map. Safe for concurrent access; records are copied on the
// way in and out to prevent external mutation of internal state.
type InMemoryConversationStore struct {
	mu      sync.RWMutex
	threads map[string][]core.MemoryRecord
}

// NewInMemoryConversationStore constructs an empty conversation store.
func NewInMemoryConversationStore() *InMemoryConversationStore {
	return &InMemoryConversationStore{threads: make(map[string][]core.MemoryRecord)}
}

// Append implements ConversationStore.
func (s *InMemoryConversationStore) Append(ctx context.Context, rec core.MemoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[rec.ThreadID] = append(s.threads[rec.ThreadID], rec)
	return nil
}

// History implements ConversationStore, returning the most recent limit
// records in chronological order.
func (s *InMemoryConversationStore) History(ctx context.Context, threadID string, limit int) ([]core.MemoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.threads[threadID]
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	out := make([]core.MemoryRecord, len(records))
	copy(out, records)
	return out, nil
}

// ClearThread implements ConversationStore.
func (s *InMemoryConversationStore) ClearThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}
