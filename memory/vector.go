package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/pravin-python/WorkSynapse-sub001/core"
)

// Embedder turns text into an embedding vector. Implementations typically
// call a provider's embedding endpoint; tests use deterministic fakes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchResult is one vector search hit with its cosine similarity score.
type SearchResult struct {
	Record core.MemoryRecord
	Score  float64
}

// VectorStore retrieves records by similarity rather than order.
type VectorStore interface {
	Add(ctx context.Context, rec core.MemoryRecord) error
	Search(ctx context.Context, threadID string, query []float32, limit int) ([]SearchResult, error)
	ClearThread(ctx context.Context, threadID string) error
}

// InMemoryVectorStoreOptions configure eviction behavior.
type InMemoryVectorStoreOptions struct {
	// Capacity bounds records kept per thread; oldest evicted first. <=0
	// disables the bound.
	Capacity int
	// MaxAge drops records older than this at search time. <=0 disables.
	MaxAge time.Duration
}

// InMemoryVectorStore is a volatile VectorStore ranking by cosine similarity
// over a linear scan. Suitable for tests and small working sets; swap in a
// vector database for production retrieval.
type InMemoryVectorStore struct {
	mu      sync.RWMutex
	threads map[string][]core.MemoryRecord
	opts    InMemoryVectorStoreOptions
}

// NewInMemoryVectorStore constructs an empty vector store.
func NewInMemoryVectorStore(optFns ...func(o *InMemoryVectorStoreOptions)) *InMemoryVectorStore {
	opts := InMemoryVectorStoreOptions{Capacity: 1024}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryVectorStore{
		threads: make(map[string][]core.MemoryRecord),
		opts:    opts,
	}
}

// Add implements VectorStore, evicting the oldest record when over capacity.
func (s *InMemoryVectorStore) Add(ctx context.Context, rec core.MemoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records := append(s.threads[rec.ThreadID], rec)
	if s.opts.Capacity > 0 && len(records) > s.opts.Capacity {
		records = records[len(records)-s.opts.Capacity:]
	}
	s.threads[rec.ThreadID] = records
	return nil
}

// Search implements VectorStore. Records without embeddings and records past
// MaxAge are skipped; results come back highest similarity first.
func (s *InMemoryVectorStore) Search(ctx context.Context, threadID string, query []float32, limit int) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Time{}
	if s.opts.MaxAge > 0 {
		cutoff = time.Now().Add(-s.opts.MaxAge)
	}

	results := make([]SearchResult, 0, limit)
	for _, rec := range s.threads[threadID] {
		if len(rec.Embedding) == 0 {
			continue
		}
		if !cutoff.IsZero() && rec.Timestamp.Before(cutoff) {
			continue
		}
		results = append(results, SearchResult{Record: rec, Score: cosine(query, rec.Embedding)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ClearThread implements VectorStore.
func (s *InMemoryVectorStore) ClearThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}

// cosine computes cosine similarity; mismatched lengths and zero vectors
// score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
