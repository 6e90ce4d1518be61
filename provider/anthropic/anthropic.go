// Package anthropic adapts the normalized provider contract to the Anthropic
// Messages API, mapping tool calls onto tool_use / tool_result content blocks.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/pravin-python/WorkSynapse-sub001/core"
	"github.com/pravin-python/WorkSynapse-sub001/provider"
)

// Options configure the Anthropic adapter.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int64
}

// Adapter wraps the Anthropic Messages API behind provider.Adapter.
type Adapter struct {
	client *anthropic.Client
	opts   Options
}

// Factory builds an Adapter from router-held configuration; register it with
// provider.Router under the name "anthropic".
func Factory(cfg provider.Config, model string) (provider.Adapter, error) {
	clientOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey.Reveal())}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(clientOpts...)
	return NewFromClient(&client, func(o *Options) { o.Model = model }), nil
}

// NewFromClient creates an Adapter from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Adapter {
	opts := Options{
		Model:       string(anthropic.ModelClaude3_5Sonnet20241022),
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
	params, err := a.buildParams(req)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}

	out := &provider.Response{
		FinishReason: finishReason(string(resp.StopReason)),
		Usage: core.TokenUsage{
			Prompt:     int(resp.Usage.InputTokens),
			Completion: int(resp.Usage.OutputTokens),
		},
	}
	var text strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.AsText().Text)
		case "tool_use":
			tu := block.AsToolUse()
			out.ToolCalls = append(out.ToolCalls, provider.ToolCall{
				ID:        tu.ID,
				Name:      tu.Name,
				Arguments: string(tu.Input),
			})
		}
	}
	out.Text = text.String()
	return out, nil
}

// buildParams assembles the Messages API request. Assistant tool calls become
// tool_use blocks; tool results become tool_result blocks on a user turn, as
// the Messages API requires.
func (a *Adapter) buildParams(req provider.Request) (anthropic.MessageNewParams, error) {
	var messages []anthropic.MessageParam
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
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case core.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input map[string]any
				if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
					return anthropic.MessageNewParams{}, provider.NewTransportError("anthropic", err)
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			if len(blocks) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(blocks...))
			}
		case core.RoleTool:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false),
			))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.opts.Model),
		Messages:    messages,
		MaxTokens:   a.maxTokens(req),
		Temperature: anthropic.Float(a.temperature(req)),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(req.Tools) > 0 {
		tools := make([]anthropic.ToolUnionParam, len(req.Tools))
		for i, tdef := range req.Tools {
			tools[i] = buildTool(tdef)
		}
		params.Tools = tools
	}
	return params, nil
}

// buildTool converts a normalized tool definition into the Anthropic schema
// form, splitting the JSON Schema object into properties and required.
func buildTool(tdef provider.ToolDefinition) anthropic.ToolUnionParam {
	schema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
	if props, ok := tdef.Parameters["properties"]; ok {
		schema.Properties = props
	}
	if required, ok := tdef.Parameters["required"].([]string); ok {
		schema.Required = required
	} else if raw, ok := tdef.Parameters["required"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	tool := anthropic.ToolParam{
		Name:        tdef.Name,
		InputSchema: schema,
	}
	if tdef.Description != "" {
		tool.Description = anthropic.String(tdef.Description)
	}
	return anthropic.ToolUnionParam{OfTool: &tool}
}

func (a *Adapter) temperature(req provider.Request) float64 {
	if req.Temperature > 0 {
		return req.Temperature
	}
	return a.opts.Temperature
}

func (a *Adapter) maxTokens(req provider.Request) int64 {
	if req.MaxTokens > 0 {
		return int64(req.MaxTokens)
	}
	return a.opts.MaxTokens
}

// Info returns metadata describing this adapter.
func (a *Adapter) Info() provider.Info {
	return provider.Info{Name: a.opts.Model, Provider: "anthropic", SupportsTools: true}
}

// finishReason normalizes Anthropic stop reasons onto the shared vocabulary.
func finishReason(stop string) string {
	switch stop {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "tool_use":
		return "tool_calls"
	default:
		return stop
	}
}

// classify maps SDK errors onto the typed provider error kinds.
func classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 429:
			return provider.NewRateLimitedError("anthropic", err)
		case apierr.StatusCode == 401 || apierr.StatusCode == 403:
			return provider.NewMisconfiguredError("anthropic", "credentials rejected")
		case apierr.StatusCode >= 500:
			return provider.NewTransportError("anthropic", err)
		}
	}
	return provider.Wrap("anthropic", err)
}
