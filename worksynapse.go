// Package worksynapse provides a high-level façade over the execution engine
// and its collaborators (provider routing, tool execution, memory, guarding
// and logging) enabling rapid construction of agent-driven applications. Most
// applications interact with this package by:
//  1. Creating a WorkSynapse via New() with a ConfigStore of agent personas
//  2. Configuring one or more providers (ConfigureProvider)
//  3. Registering tools (RegisterTool) and executing requests (Execute)
//
// The façade delegates orchestration to engine.Engine while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply durable store
// implementations and a structured logger.
package worksynapse

import (
	"context"

	"github.com/pravin-python/WorkSynapse-sub001/config"
	"github.com/pravin-python/WorkSynapse-sub001/core"
	"github.com/pravin-python/WorkSynapse-sub001/engine"
	"github.com/pravin-python/WorkSynapse-sub001/guard"
	"github.com/pravin-python/WorkSynapse-sub001/logging"
	"github.com/pravin-python/WorkSynapse-sub001/memory"
	"github.com/pravin-python/WorkSynapse-sub001/planner"
	"github.com/pravin-python/WorkSynapse-sub001/provider"
	"github.com/pravin-python/WorkSynapse-sub001/provider/anthropic"
	"github.com/pravin-python/WorkSynapse-sub001/provider/gemini"
	"github.com/pravin-python/WorkSynapse-sub001/provider/openai"
	"github.com/pravin-python/WorkSynapse-sub001/tool"
)

// Options configures the WorkSynapse instance.
type Options struct {
	// Router resolves provider bindings. Defaults to a router with the
	// OpenAI, Anthropic and Gemini adapters registered.
	Router *provider.Router

	// Registry catalogs callable tools. Defaults to an empty registry.
	Registry *tool.Registry

	// Memory manages the three memory kinds.
	// Defaults to in-memory implementations if not provided.
	Memory *memory.Manager

	// Guard runs the pre-flight security checks.
	// Defaults to guard.New() with its baseline limits.
	Guard *guard.Guard

	// Planner refines plans for agents with planning enabled. Defaults to
	// the LLM planner over the router.
	Planner planner.Planner

	// Retry is the provider backoff policy template.
	Retry provider.RetryPolicy

	// Turns optionally receives completed turns for durable persistence.
	Turns core.TurnWriter

	// Logger provides structured logging for debugging and monitoring.
	// Defaults to NoOp logger if nil to ensure no logging dependencies.
	Logger logging.Logger
}

// WorkSynapse is the high-level façade aggregating the engine and services.
type WorkSynapse struct {
	router   *provider.Router
	registry *tool.Registry
	engine   *engine.Engine
}

// New creates a WorkSynapse instance serving agents from the given config
// store, with optional overrides. Any unset service is initialized with an
// in-memory implementation.
func New(configs core.ConfigStore, optFns ...func(o *Options)) *WorkSynapse {
	opts := Options{
		Retry:  provider.DefaultRetryPolicy(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Router == nil {
		opts.Router = provider.NewRouter(func(o *provider.RouterOptions) {
			o.Logger = opts.Logger
		})
		opts.Router.RegisterFactory("openai", openai.Factory)
		opts.Router.RegisterFactory("anthropic", anthropic.Factory)
		opts.Router.RegisterFactory("gemini", gemini.Factory)
	}
	if opts.Registry == nil {
		opts.Registry = tool.NewRegistry()
	}
	if opts.Planner == nil {
		opts.Planner = planner.NewLLMPlanner(opts.Router, func(o *planner.LLMPlannerOptions) {
			o.Logger = opts.Logger
		})
	}

	e := engine.New(func(o *engine.Options) {
		o.Router = opts.Router
		o.Configs = configs
		o.Registry = opts.Registry
		o.Memory = opts.Memory
		o.Guard = opts.Guard
		o.Planner = opts.Planner
		o.Retry = opts.Retry
		o.Turns = opts.Turns
		o.Logger = opts.Logger
	})

	return &WorkSynapse{
		router:   opts.Router,
		registry: opts.Registry,
		engine:   e,
	}
}

// NewFromConfig builds a WorkSynapse from a loaded configuration file: every
// provider entry is bound to the router and every agent served from a static
// store.
func NewFromConfig(f *config.File, optFns ...func(o *Options)) *WorkSynapse {
	agents := make([]*core.AgentConfig, len(f.Agents))
	for i := range f.Agents {
		agents[i] = &f.Agents[i]
	}
	ws := New(core.NewStaticConfigStore(agents...), optFns...)
	for _, p := range f.Providers {
		ws.ConfigureProvider(p)
	}
	return ws
}

// ConfigureProvider binds a provider configuration to the router.
func (w *WorkSynapse) ConfigureProvider(cfg provider.Config) {
	w.router.Configure(cfg)
}

// RegisterTool adds a tool to the shared registry.
func (w *WorkSynapse) RegisterTool(t tool.Tool) {
	w.registry.Register(t)
}

// Tools lists the registered tool descriptors.
func (w *WorkSynapse) Tools() []tool.Descriptor {
	return w.registry.List()
}

// Execute runs one agent execution synchronously and returns its result.
func (w *WorkSynapse) Execute(ctx context.Context, req core.Request) *core.ExecutionResult {
	return w.engine.Execute(ctx, req)
}

// ExecuteStream runs one execution, forwarding incremental response text to
// onDelta as it arrives.
func (w *WorkSynapse) ExecuteStream(ctx context.Context, req core.Request, onDelta func(delta string) error) *core.ExecutionResult {
	return w.engine.ExecuteStream(ctx, req, onDelta)
}

// Stop cancels a running execution by id, reporting whether one was active.
func (w *WorkSynapse) Stop(executionID string) bool {
	return w.engine.Stop(executionID)
}
