package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pravin-python/WorkSynapse-sub001/core"
)

func mockFactory(name string) Factory {
	return func(cfg Config, model string) (Adapter, error) {
		return NewMockAdapter(model, name), nil
	}
}

func TestRouterResolve(t *testing.T) {
	r := NewRouter()
	r.RegisterFactory("openai", mockFactory("openai"))
	r.Configure(Config{Name: "openai", APIKey: "sk-test", DefaultModel: "gpt-4o-mini"})

	h, err := r.Resolve("openai", "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "openai", h.Provider())
	assert.Equal(t, "gpt-4o", h.Model())

	// Empty model falls back to the configured default.
	h, err = r.Resolve("OpenAI", "")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", h.Model())
}

func TestRouterResolveAliases(t *testing.T) {
	r := NewRouter()
	r.RegisterFactory("gemini", mockFactory("gemini"))
	r.Configure(Config{Name: "gemini", APIKey: "key", DefaultModel: "gemini-2.0-flash"})

	h, err := r.Resolve("google", "")
	require.NoError(t, err)
	assert.Equal(t, "gemini", h.Provider())
}

func TestRouterResolveErrors(t *testing.T) {
	r := NewRouter()

	_, err := r.Resolve("nope", "model")
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindNotFound, pe.Kind)

	// Registered but unconfigured.
	r.RegisterFactory("openai", mockFactory("openai"))
	_, err = r.Resolve("openai", "gpt-4o")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindMisconfigured, pe.Kind)

	// Configured without credentials.
	r.Configure(Config{Name: "openai", DefaultModel: "gpt-4o"})
	_, err = r.Resolve("openai", "")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindMisconfigured, pe.Kind)

	// No model anywhere.
	r.Configure(Config{Name: "openai", APIKey: "sk-test"})
	_, err = r.Resolve("openai", "")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindMisconfigured, pe.Kind)
}

func TestRouterRegisterFactoryLastWins(t *testing.T) {
	r := NewRouter()
	r.RegisterFactory("openai", mockFactory("first"))
	r.RegisterFactory("openai", mockFactory("second"))
	r.Configure(Config{Name: "openai", APIKey: "sk-test", DefaultModel: "m"})

	h, err := r.Resolve("openai", "")
	require.NoError(t, err)
	assert.Equal(t, "second", h.Info().Provider)
}

func TestHandleGenerate(t *testing.T) {
	r := NewRouter()
	r.RegisterFactory("mock", mockFactory("mock"))
	r.Configure(Config{Name: "mock", APIKey: "k", DefaultModel: "m"})

	h, err := r.Resolve("mock", "")
	require.NoError(t, err)

	resp, err := h.Generate(context.Background(), Request{
		Messages: []Message{{Role: core.RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "hello")
}

func TestHandleStreamFallback(t *testing.T) {
	adapter := NewMockAdapter("m", "mock")
	adapter.SetDefaultText("streamed words here")
	h := &Handle{adapter: adapter, provider: "mock", model: "m", timeout: time.Second}

	var got string
	resp, err := h.GenerateStream(context.Background(), Request{
		Messages: []Message{{Role: core.RoleUser, Content: "x"}},
	}, func(delta string) error {
		got += delta
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, resp.Text, got)
}

func TestRetryPolicySucceedsOnThirdAttempt(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}

	calls := 0
	resp, err := policy.Do(context.Background(), func() (*Response, error) {
		calls++
		if calls < 3 {
			return nil, NewTransportError("mock", errors.New("connection reset"))
		}
		return &Response{Text: "ok"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "ok", resp.Text)
}

func TestRetryPolicyDoesNotRetryMisconfiguration(t *testing.T) {
	policy := DefaultRetryPolicy()
	policy.InitialDelay = time.Millisecond

	calls := 0
	_, err := policy.Do(context.Background(), func() (*Response, error) {
		calls++
		return nil, NewMisconfiguredError("mock", "no credentials")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyTimeoutNeedsBudget(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	// No budget func: timeouts are terminal.
	calls := 0
	_, err := policy.Do(context.Background(), func() (*Response, error) {
		calls++
		return nil, NewTimeoutError("mock", context.DeadlineExceeded)
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)

	// With remaining budget, timeouts retry.
	policy.Budget = func() time.Duration { return time.Minute }
	calls = 0
	_, err = policy.Do(context.Background(), func() (*Response, error) {
		calls++
		return nil, NewTimeoutError("mock", context.DeadlineExceeded)
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestErrorRetryable(t *testing.T) {
	assert.True(t, NewTransportError("p", nil).Retryable())
	assert.True(t, NewRateLimitedError("p", nil).Retryable())
	assert.False(t, NewTimeoutError("p", nil).Retryable())
	assert.False(t, NewMisconfiguredError("p", "m").Retryable())
	assert.False(t, NewNotFoundError("p").Retryable())
}

func TestWrapPassesThroughTypedErrors(t *testing.T) {
	orig := NewRateLimitedError("openai", errors.New("429"))
	wrapped := Wrap("other", orig)
	assert.Equal(t, orig, wrapped)

	generic := Wrap("openai", errors.New("boom"))
	assert.Equal(t, KindTransport, generic.Kind)
	assert.Equal(t, "openai", generic.Provider)
}
