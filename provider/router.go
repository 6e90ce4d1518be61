package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pravin-python/WorkSynapse-sub001/core"
	"github.com/pravin-python/WorkSynapse-sub001/logging"
)

// Config holds the static configuration bound to a named provider: already
// decrypted credentials (received from the key-management collaborator), an
// optional base URL override, a default model and a per-call timeout.
type Config struct {
	Name         string        `yaml:"name"`
	APIKey       core.Secret   `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url,omitempty"`
	DefaultModel string        `yaml:"default_model,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
}

// UnmarshalYAML decodes a provider config, accepting human-readable timeout
// strings ("30s", "2m") which yaml.v3 does not parse into durations natively.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name         string      `yaml:"name"`
		APIKey       core.Secret `yaml:"api_key"`
		BaseURL      string      `yaml:"base_url"`
		DefaultModel string      `yaml:"default_model"`
		Timeout      string      `yaml:"timeout"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	c.Name = raw.Name
	c.APIKey = raw.APIKey
	c.BaseURL = raw.BaseURL
	c.DefaultModel = raw.DefaultModel
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("provider %s: invalid timeout %q: %w", raw.Name, raw.Timeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// Factory constructs an Adapter for a provider configuration and concrete
// model name. Factories run once per Resolve; adapters hold no per-call state.
type Factory func(cfg Config, model string) (Adapter, error)

// RouterOptions configures a Router instance.
type RouterOptions struct {
	// Aliases maps alternative names onto registered providers
	// (e.g. "google" -> "gemini"). Merged over the built-in table.
	Aliases map[string]string
	// DefaultTimeout applies when a provider config sets none.
	DefaultTimeout time.Duration
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// defaultAliases is the static alias table; selection is not inheritance,
// just a name lookup.
var defaultAliases = map[string]string{
	"google": "gemini",
	"claude": "anthropic",
	"gpt":    "openai",
}

// Router is a pure lookup + configuration-binding layer. It owns provider
// configurations and adapter factories, resolves case-insensitive provider
// names (through the alias table) and binds credentials at resolve time. It
// holds no per-call state and is safe for concurrent use.
type Router struct {
	mu        sync.RWMutex
	factories map[string]Factory
	configs   map[string]Config

	aliases        map[string]string
	defaultTimeout time.Duration
	logger         logging.Logger
}

// NewRouter creates a Router with optional overrides.
func NewRouter(optFns ...func(o *RouterOptions)) *Router {
	opts := RouterOptions{
		DefaultTimeout: 60 * time.Second,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	aliases := make(map[string]string, len(defaultAliases)+len(opts.Aliases))
	for k, v := range defaultAliases {
		aliases[k] = v
	}
	for k, v := range opts.Aliases {
		aliases[strings.ToLower(k)] = strings.ToLower(v)
	}

	return &Router{
		factories:      make(map[string]Factory),
		configs:        make(map[string]Config),
		aliases:        aliases,
		defaultTimeout: opts.DefaultTimeout,
		logger:         opts.Logger,
	}
}

// RegisterFactory makes an adapter constructor available under the given
// provider name. Registration is idempotent by name (last wins) and normally
// happens once at process start.
func (r *Router) RegisterFactory(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = f
}

// Configure binds a configuration to its provider name. The raw credential is
// never logged; only the masked form appears in debug output.
func (r *Router) Configure(cfg Config) {
	name := strings.ToLower(cfg.Name)
	r.mu.Lock()
	r.configs[name] = cfg
	r.mu.Unlock()
	r.logger.Debug("provider.configured",
		"provider", name,
		"api_key", cfg.APIKey.Masked(),
		"base_url", cfg.BaseURL,
	)
}

// canonical lowers the name and follows the alias table.
func (r *Router) canonical(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if target, ok := r.aliases[n]; ok {
		return target
	}
	return n
}

// Resolve returns a Handle for the named provider and model. The model falls
// back to the configuration's default when empty. Fails with a not-found
// error for unregistered names and a misconfigured error when required
// credentials are absent.
func (r *Router) Resolve(providerName, modelName string) (*Handle, error) {
	name := r.canonical(providerName)

	r.mu.RLock()
	factory, ok := r.factories[name]
	cfg, haveCfg := r.configs[name]
	r.mu.RUnlock()

	if !ok {
		return nil, NewNotFoundError(name)
	}
	if !haveCfg {
		return nil, NewMisconfiguredError(name, "no configuration bound")
	}
	if cfg.APIKey.IsZero() {
		return nil, NewMisconfiguredError(name, "missing credentials")
	}

	model := modelName
	if model == "" {
		model = cfg.DefaultModel
	}
	if model == "" {
		return nil, NewMisconfiguredError(name, "no model selected and no default configured")
	}

	adapter, err := factory(cfg, model)
	if err != nil {
		return nil, NewMisconfiguredError(name, err.Error())
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}

	return &Handle{
		adapter:  adapter,
		provider: name,
		model:    model,
		timeout:  timeout,
	}, nil
}

// Providers lists the names with both a factory and a configuration bound.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		if _, ok := r.configs[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Handle is a resolved (provider, model) binding. Generate applies the
// configured per-call timeout and normalizes faults to typed provider errors.
type Handle struct {
	adapter  Adapter
	provider string
	model    string
	timeout  time.Duration
}

// Provider returns the canonical provider name.
func (h *Handle) Provider() string { return h.provider }

// Model returns the bound model name.
func (h *Handle) Model() string { return h.model }

// Info returns adapter metadata.
func (h *Handle) Info() Info { return h.adapter.Info() }

// Generate performs one normalized completion call.
func (h *Handle) Generate(ctx context.Context, req Request) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp, err := h.adapter.Generate(callCtx, req)
	if err != nil {
		// Caller cancellation is not a provider fault.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Wrap(h.provider, err)
	}
	return resp, nil
}

// GenerateStream performs one streaming completion call when the underlying
// adapter supports it, falling back to a single final delta otherwise.
func (h *Handle) GenerateStream(ctx context.Context, req Request, onDelta func(string) error) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if s, ok := h.adapter.(Streamer); ok {
		resp, err := s.GenerateStream(callCtx, req, onDelta)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, Wrap(h.provider, err)
		}
		return resp, nil
	}

	resp, err := h.adapter.Generate(callCtx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Wrap(h.provider, err)
	}
	if resp.Text != "" {
		if err := onDelta(resp.Text); err != nil {
			return nil, err
		}
	}
	return resp, nil
}
