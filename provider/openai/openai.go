// Package openai adapts the normalized provider contract to the OpenAI Chat
// Completions API (including streaming and function/tool calling).
package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pravin-python/WorkSynapse-sub001/core"
	"github.com/pravin-python/WorkSynapse-sub001/provider"
)

// aggCall aggregates partial tool call streaming deltas (id, name, arguments)
// so complete calls can be reconstructed when the finish reason arrives.
type aggCall struct{ id, name, args string }

// Options configure the OpenAI adapter. Fields mirror a deliberately minimal
// subset of Chat Completion parameters.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Adapter wraps the OpenAI Chat Completions API behind provider.Adapter.
type Adapter struct {
	client *openai.Client
	opts   Options
}

// Factory builds an Adapter from router-held configuration; register it with
// provider.Router under the name "openai".
func Factory(cfg provider.Config, model string) (provider.Adapter, error) {
	clientOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey.Reveal())}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(clientOpts...)
	return NewFromClient(&client, func(o *Options) { o.Model = model }), nil
}

// NewFromClient creates an Adapter from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Adapter {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Adapter{client: client, opts: opts}
}

// Generate implements provider.Adapter.
func (a *Adapter) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	resp, err := a.client.Chat.Completions.New(ctx, a.buildParams(req))
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, provider.NewTransportError("openai", errors.New("no choices returned"))
	}

	ch0 := resp.Choices[0]
	out := &provider.Response{
		Text:         ch0.Message.Content,
		FinishReason: string(ch0.FinishReason),
		Usage: core.TokenUsage{
			Prompt:     int(resp.Usage.PromptTokens),
			Completion: int(resp.Usage.CompletionTokens),
		},
	}
	for _, tc := range ch0.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, provider.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

// GenerateStream implements provider.Streamer, forwarding text deltas and
// returning the accumulated final response.
func (a *Adapter) GenerateStream(ctx context.Context, req provider.Request, onDelta func(string) error) (*provider.Response, error) {
	params := a.buildParams(req)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}

	stream := a.client.Chat.Completions.NewStreaming(ctx, params)
	var textBuilder strings.Builder
	toolAgg := map[int64]*aggCall{}
	var finishReason string
	var usage core.TokenUsage

	for stream.Next() {
		ck := stream.Current()
		if ck.Usage.TotalTokens > 0 {
			usage = core.TokenUsage{
				Prompt:     int(ck.Usage.PromptTokens),
				Completion: int(ck.Usage.CompletionTokens),
			}
		}
		for _, ch := range ck.Choices {
			if ch.Delta.Content != "" {
				textBuilder.WriteString(ch.Delta.Content)
				if err := onDelta(ch.Delta.Content); err != nil {
					return nil, err
				}
			}
			for _, tc := range ch.Delta.ToolCalls {
				ac, ok := toolAgg[tc.Index]
				if !ok {
					ac = &aggCall{}
					toolAgg[tc.Index] = ac
				}
				if tc.ID != "" {
					ac.id = tc.ID
				}
				if tc.Function.Name != "" {
					ac.name = tc.Function.Name
				}
				ac.args += tc.Function.Arguments
			}
			if ch.FinishReason != "" {
				finishReason = string(ch.FinishReason)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, classify(err)
	}

	out := &provider.Response{
		Text:         textBuilder.String(),
		FinishReason: finishReason,
		Usage:        usage,
	}
	for _, ac := range toolAgg {
		out.ToolCalls = append(out.ToolCalls, provider.ToolCall{ID: ac.id, Name: ac.name, Arguments: ac.args})
	}
	return out, nil
}

// buildParams assembles the request parameters including tool definitions.
func (a *Adapter) buildParams(req provider.Request) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case core.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case core.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(m.Content))
				continue
			}
			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: toolCalls,
				},
			})
		case core.RoleTool:
			messages = append(messages, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			if m.Content != "" {
				messages = append(messages, openai.UserMessage(m.Content))
			}
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               a.opts.Model,
		Temperature:         openai.Float(a.temperature(req)),
		MaxCompletionTokens: openai.Int(a.maxTokens(req)),
	}
	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
		for i, tdef := range req.Tools {
			tools[i] = openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        tdef.Name,
					Description: openai.String(tdef.Description),
					Parameters:  tdef.Parameters,
				},
			}
		}
		params.Tools = tools
	}
	return params
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
	return a.opts.MaxCompletionTokens
}

// Info returns metadata describing this adapter.
func (a *Adapter) Info() provider.Info {
	return provider.Info{Name: a.opts.Model, Provider: "openai", SupportsTools: true}
}

// classify maps SDK errors onto the typed provider error kinds.
func classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 429:
			return provider.NewRateLimitedError("openai", err)
		case apierr.StatusCode == 401 || apierr.StatusCode == 403:
			return provider.NewMisconfiguredError("openai", "credentials rejected")
		case apierr.StatusCode >= 500:
			return provider.NewTransportError("openai", err)
		}
	}
	return provider.Wrap("openai", err)
}
