package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/pravin-python/WorkSynapse-sub001/core"
)

// Interface compliance (compile-time assertions)
var (
	_ ConversationStore = (*InMemoryConversationStore)(nil)
	_ VectorStore       = (*InMemoryVectorStore)(nil)
	_ SessionStore      = (*InMemorySessionStore)(nil)
	_ Tokenizer         = (*TiktokenCounter)(nil)
)

// fixedTokenizer charges one token per rune, making budgets easy to reason
// about in tests.
type fixedTokenizer struct{}

func (fixedTokenizer) Count(text string) int { return len([]rune(text)) }

func newTestManager(optFns ...func(o *ManagerOptions)) *Manager {
	return NewManager(append([]func(o *ManagerOptions){func(o *ManagerOptions) {
		o.Tokenizer = fixedTokenizer{}
	}}, optFns...)...)
}

func TestManagerAppendLoadOrder(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := core.NewMemoryRecord("t1", core.RoleUser, fmt.Sprintf("msg-%d", i))
		if err := m.Append(ctx, rec); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	records, err := m.Load(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.Content != fmt.Sprintf("msg-%d", i) {
			t.Fatalf("order violated at %d: %s", i, rec.Content)
		}
	}

	// Limit returns the most recent records, still chronological.
	tail, _ := m.Load(ctx, "t1", 2)
	if len(tail) != 2 || tail[0].Content != "msg-3" || tail[1].Content != "msg-4" {
		t.Fatalf("unexpected tail: %#v", tail)
	}
}

func TestManagerConcurrentAppendsSameThread(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.Append(ctx, core.NewMemoryRecord("t1", core.RoleUser, fmt.Sprintf("m%d", i)))
		}(i)
	}
	wg.Wait()

	records, _ := m.Load(ctx, "t1", 0)
	if len(records) != 20 {
		t.Fatalf("expected 20 records, got %d", len(records))
	}
}

func TestBuildContextBudget(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	// 10-rune contents cost 14 tokens each with the per-message overhead.
	for i := 0; i < 10; i++ {
		_ = m.Append(ctx, core.NewMemoryRecord("t1", core.RoleUser, fmt.Sprintf("content-%02d", i)))
	}

	cfg := &core.AgentConfig{ID: "a1", Name: "A", Provider: "mock"}
	cfg.Advanced.Normalize()
	cfg.Advanced.ContextBudgetTokens = 3 * 14

	selected, err := m.BuildContext(ctx, cfg, "t1", "")
	if err != nil {
		t.Fatalf("build context failed: %v", err)
	}
	if len(selected) != 3 {
		t.Fatalf("expected 3 records within budget, got %d", len(selected))
	}
	// Newest records chosen, returned chronologically, never truncated.
	want := []string{"content-07", "content-08", "content-09"}
	for i, rec := range selected {
		if rec.Content != want[i] {
			t.Fatalf("unexpected selection at %d: %s", i, rec.Content)
		}
	}
}

func TestBuildContextSessionKindIsEmpty(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	_ = m.Append(ctx, core.NewMemoryRecord("t1", core.RoleUser, "hello"))

	cfg := &core.AgentConfig{ID: "a1", Name: "A", Provider: "mock", MemoryKind: core.MemorySession}
	cfg.Advanced.Normalize()

	selected, err := m.BuildContext(ctx, cfg, "t1", "")
	if err != nil {
		t.Fatalf("build context failed: %v", err)
	}
	if len(selected) != 0 {
		t.Fatalf("session kind should assemble no context, got %d records", len(selected))
	}
}

func TestScratchpadLastWriteWins(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	_ = m.UpdateScratchpad(ctx, "t1", map[string]any{"phase": "draft", "owner": "alex"})
	_ = m.UpdateScratchpad(ctx, "t1", map[string]any{"phase": "review"})

	pad, err := m.Scratchpad(ctx, "t1")
	if err != nil {
		t.Fatalf("scratchpad failed: %v", err)
	}
	if pad["phase"] != "review" || pad["owner"] != "alex" {
		t.Fatalf("unexpected scratchpad: %#v", pad)
	}

	// Returned map is a copy.
	pad["phase"] = "mutated"
	pad2, _ := m.Scratchpad(ctx, "t1")
	if pad2["phase"] != "review" {
		t.Fatalf("expected copy isolation, got %#v", pad2["phase"])
	}
}

func TestManagerSearchSubstringFallback(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	cfg := &core.AgentConfig{MemoryKind: core.MemoryVector}
	_ = m.Append(ctx, core.NewMemoryRecord("t1", core.RoleUser, "Deploy the Billing service"))
	_ = m.Append(ctx, core.NewMemoryRecord("t1", core.RoleUser, "Write release notes"))

	hits, err := m.Search(ctx, cfg, "t1", "billing", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 || !strings.Contains(hits[0].Content, "Billing") {
		t.Fatalf("unexpected hits: %#v", hits)
	}
}

func TestManagerSearchNonVectorKindsEmpty(t *testing.T) {
	m := newTestManager(func(o *ManagerOptions) {
		o.Embedder = unitEmbedder{}
	})
	ctx := context.Background()
	_ = m.Append(ctx, core.NewMemoryRecord("t1", core.RoleUser, "I like apple pie"))

	for _, kind := range []core.MemoryKind{core.MemoryConversation, core.MemorySession, ""} {
		cfg := &core.AgentConfig{MemoryKind: kind}
		hits, err := m.Search(ctx, cfg, "t1", "apple", 10)
		if err != nil {
			t.Fatalf("search failed for kind %q: %v", kind, err)
		}
		if len(hits) != 0 {
			t.Fatalf("expected no hits for kind %q, got %#v", kind, hits)
		}
	}
}

// unitEmbedder maps known words to orthogonal unit vectors.
type unitEmbedder struct{}

func (unitEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := []float32{0, 0, 1}
	switch {
	case strings.Contains(strings.ToLower(text), "apple"):
		v = []float32{1, 0, 0}
	case strings.Contains(strings.ToLower(text), "banana"):
		v = []float32{0, 1, 0}
	}
	return v, nil
}

func TestManagerVectorSearch(t *testing.T) {
	m := newTestManager(func(o *ManagerOptions) {
		o.Embedder = unitEmbedder{}
	})
	ctx := context.Background()
	_ = m.Append(ctx, core.NewMemoryRecord("t1", core.RoleUser, "I like apple pie"))
	_ = m.Append(ctx, core.NewMemoryRecord("t1", core.RoleUser, "banana bread recipe"))

	cfg := &core.AgentConfig{MemoryKind: core.MemoryVector}
	hits, err := m.Search(ctx, cfg, "t1", "apple", 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 || !strings.Contains(hits[0].Content, "apple") {
		t.Fatalf("unexpected hits: %#v", hits)
	}
}

func TestVectorStoreCapacityEviction(t *testing.T) {
	s := NewInMemoryVectorStore(func(o *InMemoryVectorStoreOptions) {
		o.Capacity = 2
	})
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		rec := core.NewMemoryRecord("t1", core.RoleUser, fmt.Sprintf("r%d", i))
		rec.Embedding = []float32{1, 0}
		if err := s.Add(ctx, rec); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	hits, _ := s.Search(ctx, "t1", []float32{1, 0}, 10)
	if len(hits) != 2 {
		t.Fatalf("expected capacity eviction to 2, got %d", len(hits))
	}
	for _, h := range hits {
		if h.Record.Content == "r0" || h.Record.Content == "r1" {
			t.Fatalf("oldest records should be evicted, found %s", h.Record.Content)
		}
	}
}

func TestManagerClearThread(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	_ = m.Append(ctx, core.NewMemoryRecord("t1", core.RoleUser, "hello"))
	_ = m.UpdateScratchpad(ctx, "t1", map[string]any{"k": "v"})

	if err := m.ClearThread(ctx, "t1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	records, _ := m.Load(ctx, "t1", 0)
	if len(records) != 0 {
		t.Fatalf("expected empty thread, got %d records", len(records))
	}
	pad, _ := m.Scratchpad(ctx, "t1")
	if len(pad) != 0 {
		t.Fatalf("expected empty scratchpad, got %#v", pad)
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Fatalf("identical vectors should score ~1, got %f", got)
	}
	if got := cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Fatalf("orthogonal vectors should score 0, got %f", got)
	}
	if got := cosine([]float32{1}, []float32{1, 0}); got != 0 {
		t.Fatalf("mismatched lengths should score 0, got %f", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := estimate("hello world"); got < 1 {
		t.Fatalf("expected positive estimate, got %d", got)
	}
	ascii := estimate(strings.Repeat("a", 40))
	cjk := estimate(strings.Repeat("世", 40))
	if cjk <= ascii {
		t.Fatalf("CJK text should cost more tokens per char: ascii=%d cjk=%d", ascii, cjk)
	}
}
