package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/pravin-python/WorkSynapse-sub001/core"
	"github.com/pravin-python/WorkSynapse-sub001/logging"
)

// ManagerOptions configure a Manager instance. Nil stores fall back to the
// in-memory implementations; a nil Embedder degrades vector search to a
// substring scan over the conversation log.
type ManagerOptions struct {
	Conversation ConversationStore
	Vector       VectorStore
	Session      SessionStore
	Embedder     Embedder
	Tokenizer    Tokenizer
	Logger       logging.Logger
}

// Manager fronts the three memory kinds behind one facade. Appends to the
// same thread are serialized so observed order matches append order;
// different threads proceed concurrently.
type Manager struct {
	conversation ConversationStore
	vector       VectorStore
	session      SessionStore
	embedder     Embedder
	tokenizer    Tokenizer
	logger       logging.Logger

	mu      sync.Mutex
	threads map[string]*sync.Mutex
}

// NewManager creates a Manager with in-memory defaults.
func NewManager(optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Conversation == nil {
		opts.Conversation = NewInMemoryConversationStore()
	}
	if opts.Vector == nil {
		opts.Vector = NewInMemoryVectorStore()
	}
	if opts.Session == nil {
		opts.Session = NewInMemorySessionStore()
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = NewTiktokenCounter()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Manager{
		conversation: opts.Conversation,
		vector:       opts.Vector,
		session:      opts.Session,
		embedder:     opts.Embedder,
		tokenizer:    opts.Tokenizer,
		logger:       opts.Logger,
		threads:      make(map[string]*sync.Mutex),
	}
}

// threadLock returns the mutex serializing appends for one thread.
func (m *Manager) threadLock(threadID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.threads[threadID]
	if !ok {
		lock = &sync.Mutex{}
		m.threads[threadID] = lock
	}
	return lock
}

// Append records one turn in the conversation log and, when an embedder is
// configured, indexes it for vector retrieval. Appends to the same thread are
// serialized.
func (m *Manager) Append(ctx context.Context, rec core.MemoryRecord) error {
	lock := m.threadLock(rec.ThreadID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.conversation.Append(ctx, rec); err != nil {
		return err
	}
	if m.embedder != nil && rec.Content != "" {
		embedding, err := m.embedder.Embed(ctx, rec.Content)
		if err != nil {
			// Retrieval quality degrades but the conversation log stays intact.
			m.logger.Warn("memory.embed_failed", "thread_id", rec.ThreadID, "error", err.Error())
		} else {
			rec.Embedding = embedding
			if err := m.vector.Add(ctx, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load returns the most recent limit records of a thread in chronological
// order.
func (m *Manager) Load(ctx context.Context, threadID string, limit int) ([]core.MemoryRecord, error) {
	return m.conversation.History(ctx, threadID, limit)
}

// Search retrieves the records most relevant to query. Only vector-kind
// agents support retrieval; conversation and session agents get an empty
// result. With an embedder configured the search runs cosine similarity;
// otherwise it falls back to a case-insensitive substring scan over the
// conversation log.
func (m *Manager) Search(ctx context.Context, cfg *core.AgentConfig, threadID, query string, limit int) ([]core.MemoryRecord, error) {
	if cfg.EffectiveMemoryKind() != core.MemoryVector {
		return nil, nil
	}
	if m.embedder != nil {
		embedding, err := m.embedder.Embed(ctx, query)
		if err != nil {
			return nil, err
		}
		hits, err := m.vector.Search(ctx, threadID, embedding, limit)
		if err != nil {
			return nil, err
		}
		out := make([]core.MemoryRecord, len(hits))
		for i, hit := range hits {
			out[i] = hit.Record
		}
		return out, nil
	}

	history, err := m.conversation.History(ctx, threadID, 0)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var out []core.MemoryRecord
	for _, rec := range history {
		if needle == "" || strings.Contains(strings.ToLower(rec.Content), needle) {
			out = append(out, rec)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// BuildContext assembles the records that fit the agent's context token
// budget. Selection walks newest to oldest and stops at the first record that
// does not fit whole (records are never truncated mid-record); the returned
// slice is chronological. Vector-kind agents get similarity hits for the query merged
// ahead of recency when a query is given.
func (m *Manager) BuildContext(ctx context.Context, cfg *core.AgentConfig, threadID, query string) ([]core.MemoryRecord, error) {
	budget := cfg.Advanced.ContextBudgetTokens
	if budget <= 0 {
		budget = core.DefaultContextBudgetTokens
	}

	var candidates []core.MemoryRecord
	switch cfg.EffectiveMemoryKind() {
	case core.MemorySession:
		// Scratchpad agents carry no conversational context; tools read the
		// scratchpad explicitly.
		return nil, nil
	case core.MemoryVector:
		if query != "" {
			hits, err := m.Search(ctx, cfg, threadID, query, 0)
			if err != nil {
				return nil, err
			}
			candidates = hits
		}
		if len(candidates) == 0 {
			history, err := m.conversation.History(ctx, threadID, 0)
			if err != nil {
				return nil, err
			}
			candidates = history
		}
	default:
		history, err := m.conversation.History(ctx, threadID, 0)
		if err != nil {
			return nil, err
		}
		candidates = history
	}

	remaining := budget
	selected := make([]core.MemoryRecord, 0, len(candidates))
	for i := len(candidates) - 1; i >= 0; i-- {
		cost := recordTokens(m.tokenizer, candidates[i])
		if cost > remaining {
			// A record that does not fit whole ends the selection; partial
			// records would corrupt the transcript.
			break
		}
		remaining -= cost
		selected = append(selected, candidates[i])
	}

	// Selection walked newest first; restore chronological order.
	for i, j := 0, len(selected)-1; i < j; i, j = i+1, j-1 {
		selected[i], selected[j] = selected[j], selected[i]
	}
	return selected, nil
}

// Scratchpad returns the session scratchpad for a thread.
func (m *Manager) Scratchpad(ctx context.Context, threadID string) (map[string]any, error) {
	return m.session.Get(ctx, threadID)
}

// UpdateScratchpad merges a delta into the thread's scratchpad.
func (m *Manager) UpdateScratchpad(ctx context.Context, threadID string, delta map[string]any) error {
	return m.session.Put(ctx, threadID, delta)
}

// ClearThread removes the thread from every backing store.
func (m *Manager) ClearThread(ctx context.Context, threadID string) error {
	lock := m.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.conversation.ClearThread(ctx, threadID); err != nil {
		return err
	}
	if err := m.vector.ClearThread(ctx, threadID); err != nil {
		return err
	}
	return m.session.ClearThread(ctx, threadID)
}
