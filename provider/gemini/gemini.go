// Package gemini adapts the normalized provider contract to the Google Gemini
// API via the google.golang.org/genai SDK.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/pravin-python/WorkSynapse-sub001/core"
	"github.com/pravin-python/WorkSynapse-sub001/provider"
)

// Options configure the Gemini adapter.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int32
}

// Adapter wraps the Gemini GenerateContent API behind provider.Adapter.
type Adapter struct {
	client *genai.Client
	opts   Options
}

// Factory builds an Adapter from router-held configuration; register it with
// provider.Router under the name "gemini".
func Factory(cfg provider.Config, model string) (provider.Adapter, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey.Reveal(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return NewFromClient(client, func(o *Options) { o.Model = model }), nil
}

// NewFromClient creates an Adapter from an existing client.
func NewFromClient(client *genai.Client, optFns ...func(o *Options)) *Adapter {
	opts := Options{
		Model:       "gemini-2.0-flash",
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Adapter{client: client, opts: opts}
}

// Generate implements provider.Adapter.
func (a *Adapter) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	contents, config, err := a.buildRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.opts.Model, contents, config)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, provider.NewTransportError("gemini", errors.New("no candidates returned"))
	}

	out := &provider.Response{FinishReason: "stop"}
	if resp.UsageMetadata != nil {
		out.Usage = core.TokenUsage{
			Prompt:     int(resp.UsageMetadata.PromptTokenCount),
			Completion: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, provider.NewTransportError("gemini", err)
			}
			out.ToolCalls = append(out.ToolCalls, provider.ToolCall{
				ID:        callID(part.FunctionCall),
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
			})
		}
	}
	out.Text = text.String()
	if len(out.ToolCalls) > 0 {
		out.FinishReason = "tool_calls"
	}
	return out, nil
}

// GenerateStream implements provider.Streamer, forwarding text deltas and
// returning the accumulated final response.
func (a *Adapter) GenerateStream(ctx context.Context, req provider.Request, onDelta func(string) error) (*provider.Response, error) {
	contents, config, err := a.buildRequest(req)
	if err != nil {
		return nil, err
	}

	out := &provider.Response{FinishReason: "stop"}
	var text strings.Builder
	for resp, err := range a.client.Models.GenerateContentStream(ctx, a.opts.Model, contents, config) {
		if err != nil {
			return nil, classify(err)
		}
		if resp.UsageMetadata != nil {
			out.Usage = core.TokenUsage{
				Prompt:     int(resp.UsageMetadata.PromptTokenCount),
				Completion: int(resp.UsageMetadata.CandidatesTokenCount),
			}
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				text.WriteString(part.Text)
				if err := onDelta(part.Text); err != nil {
					return nil, err
				}
			}
			if part.FunctionCall != nil {
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					return nil, provider.NewTransportError("gemini", err)
				}
				out.ToolCalls = append(out.ToolCalls, provider.ToolCall{
					ID:        callID(part.FunctionCall),
					Name:      part.FunctionCall.Name,
					Arguments: string(args),
				})
			}
		}
	}
	out.Text = text.String()
	if len(out.ToolCalls) > 0 {
		out.FinishReason = "tool_calls"
	}
	return out, nil
}

// buildRequest converts the normalized request into genai contents and config.
// Tool results travel back as function_response parts on a user turn.
func (a *Adapter) buildRequest(req provider.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	var contents []*genai.Content
	system := req.System

	for _, m := range req.Messages {
		switch m.Role {
		case core.RoleSystem:
			if system == "" {
				system = m.Content
			} else {
				system += "\n\n" + m.Content
			}
		case core.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		case core.RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
					return nil, nil, provider.NewTransportError("gemini", err)
				}
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: args},
				})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})
			}
		case core.RoleTool:
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     m.ToolCallID,
						Response: map[string]any{"result": m.Content},
					},
				}},
			})
		}
	}

	temp := float32(a.opts.Temperature)
	if req.Temperature > 0 {
		temp = float32(req.Temperature)
	}
	maxTokens := a.opts.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = int32(req.MaxTokens)
	}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temp),
		MaxOutputTokens: maxTokens,
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(req.Tools))
		for i, tdef := range req.Tools {
			decls[i] = &genai.FunctionDeclaration{
				Name:        tdef.Name,
				Description: tdef.Description,
				Parameters:  toSchema(tdef.Parameters),
			}
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return contents, config, nil
}

// toSchema converts a JSON Schema object (minimal subset) into a genai.Schema.
func toSchema(params map[string]any) *genai.Schema {
	if params == nil {
		return nil
	}
	schema := &genai.Schema{Type: genai.TypeObject}
	if t, ok := params["type"].(string); ok {
		schema.Type = genai.Type(strings.ToUpper(t))
	}
	if desc, ok := params["description"].(string); ok {
		schema.Description = desc
	}
	if props, ok := params["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				schema.Properties[name] = toSchema(sub)
			}
		}
	}
	if items, ok := params["items"].(map[string]any); ok {
		schema.Items = toSchema(items)
	}
	if required, ok := params["required"].([]string); ok {
		schema.Required = required
	} else if raw, ok := params["required"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if enum, ok := params["enum"].([]any); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}
	return schema
}

// callID derives a stable identifier for a function call; Gemini does not
// issue call IDs, so the function name stands in.
func callID(fc *genai.FunctionCall) string {
	if fc.ID != "" {
		return fc.ID
	}
	return fc.Name
}

// Info returns metadata describing this adapter.
func (a *Adapter) Info() provider.Info {
	return provider.Info{Name: a.opts.Model, Provider: "gemini", SupportsTools: true}
}

// classify maps SDK errors onto the typed provider error kinds.
func classify(err error) error {
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		switch {
		case apierr.Code == 429:
			return provider.NewRateLimitedError("gemini", err)
		case apierr.Code == 401 || apierr.Code == 403:
			return provider.NewMisconfiguredError("gemini", "credentials rejected")
		case apierr.Code >= 500:
			return provider.NewTransportError("gemini", err)
		}
	}
	return provider.Wrap("gemini", err)
}
