package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/pravin-python/WorkSynapse-sub001/core"
)

// Message is one turn of normalized conversational input. ToolCallID links a
// tool-role message to the call that produced it; ToolCalls carries the calls
// an assistant turn requested.
type Message struct {
	Role       core.Role  `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a function invocation request surfaced by a model, unified
// across vendors so downstream logic needs no per-provider branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// ToolDefinition declaratively exposes a callable tool to the model.
// Parameters is a JSON Schema object (minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input assembled by the engine.
type Request struct {
	System      string           `json:"system,omitempty"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

// Response is the normalized completion returned by an adapter.
type Response struct {
	Text         string          `json:"text"`
	ToolCalls    []ToolCall      `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason"` // "stop", "length", "tool_calls", ...
	Usage        core.TokenUsage `json:"usage"`
}

// Info contains metadata about an adapter implementation.
type Info struct {
	Name          string `json:"name"`     // model name
	Provider      string `json:"provider"` // "openai", "anthropic", "gemini", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Adapter is the minimal interface required to drive generation. Adapters
// must be safe for concurrent use; each Generate call is independent.
type Adapter interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the adapter implementation.
	Info() Info
}

// Streamer is an optional adapter capability. OnDelta is invoked for each
// incremental text fragment; the final accumulated Response is returned when
// the stream terminates. A non-nil error from onDelta aborts the stream.
type Streamer interface {
	GenerateStream(ctx context.Context, req Request, onDelta func(delta string) error) (*Response, error)
}

// MockAdapter is a deterministic in-memory Adapter for tests and examples.
// ScriptedErrors are consumed first, one per call, enabling retry scenarios;
// ScriptedResponses are consumed next, enabling multi-round tool-call flows;
// finally canned responses are matched on the last user message.
type MockAdapter struct {
	info              Info
	responses         map[string]*Response
	defaultText       string
	ScriptedErrors    []error
	ScriptedResponses []*Response
	Calls             int
}

// NewMockAdapter constructs a MockAdapter with tool support enabled.
func NewMockAdapter(name, providerName string) *MockAdapter {
	return &MockAdapter{
		info:      Info{Name: name, Provider: providerName, SupportsTools: true},
		responses: make(map[string]*Response),
	}
}

// AddResponse registers a canned response for a given last-user-message text.
func (m *MockAdapter) AddResponse(input string, resp *Response) { m.responses[input] = resp }

// SetDefaultText sets the fallback completion text.
func (m *MockAdapter) SetDefaultText(text string) { m.defaultText = text }

// Generate implements Adapter.
func (m *MockAdapter) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.Calls++
	if len(m.ScriptedErrors) > 0 {
		err := m.ScriptedErrors[0]
		m.ScriptedErrors = m.ScriptedErrors[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(m.ScriptedResponses) > 0 {
		resp := m.ScriptedResponses[0]
		m.ScriptedResponses = m.ScriptedResponses[1:]
		cp := *resp
		return &cp, nil
	}
	var lastUser string
	for _, msg := range req.Messages {
		if msg.Role == core.RoleUser {
			lastUser = msg.Content
		}
	}
	if resp, ok := m.responses[lastUser]; ok {
		cp := *resp
		return &cp, nil
	}
	text := m.defaultText
	if text == "" {
		text = fmt.Sprintf("Mock response to: %s", lastUser)
	}
	return &Response{
		Text:         text,
		FinishReason: "stop",
		Usage:        core.TokenUsage{Prompt: estimateWords(req), Completion: len(strings.Fields(text))},
	}, nil
}

// GenerateStream implements Streamer by emitting the completion word by word.
func (m *MockAdapter) GenerateStream(ctx context.Context, req Request, onDelta func(string) error) (*Response, error) {
	resp, err := m.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, w := range strings.SplitAfter(resp.Text, " ") {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := onDelta(w); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// Info implements Adapter.
func (m *MockAdapter) Info() Info { return m.info }

func estimateWords(req Request) int {
	n := len(strings.Fields(req.System))
	for _, msg := range req.Messages {
		n += len(strings.Fields(msg.Content))
	}
	return n
}
