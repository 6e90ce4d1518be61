// Package guard implements the security checks that run before any model or
// tool work: prompt injection screening of inbound messages, capability
// checks against the agent's permission set and per user+agent rate limiting.
package guard

import (
	"fmt"
	"strings"

	"github.com/pravin-python/WorkSynapse-sub001/core"
	"github.com/pravin-python/WorkSynapse-sub001/logging"
)

// Options configure a Guard instance.
type Options struct {
	// RequestsPerSecond and Burst parameterize the per user+agent limiter.
	RequestsPerSecond float64
	Burst             int
	// MaxMessageBytes rejects oversized inbound messages outright. <=0
	// disables the bound.
	MaxMessageBytes int
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Guard runs the pre-flight security checks. It is stateless apart from the
// rate limiter and safe for concurrent use.
type Guard struct {
	limiter         *RateLimiter
	maxMessageBytes int
	logger          logging.Logger
}

// New creates a Guard with sensible defaults: 1 request/second with a burst
// of 5 per user+agent pair, 64 KiB message bound.
func New(optFns ...func(o *Options)) *Guard {
	opts := Options{
		RequestsPerSecond: 1,
		Burst:             5,
		MaxMessageBytes:   64 * 1024,
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Guard{
		limiter:         NewRateLimiter(opts.RequestsPerSecond, opts.Burst),
		maxMessageBytes: opts.MaxMessageBytes,
		logger:          opts.Logger,
	}
}

// CheckInbound screens an inbound message for prompt injection. A single
// strong marker or two independent weak markers block the message; one weak
// marker alone passes with a warning, since phrases like a leading "system:"
// occur in legitimate text.
func (g *Guard) CheckInbound(execCtx core.ExecutionContext, message string) core.GuardDecision {
	if g.maxMessageBytes > 0 && len(message) > g.maxMessageBytes {
		return core.Block("message exceeds maximum size")
	}

	strongHits, weakHits := scan(message)
	switch {
	case len(strongHits) > 0:
		g.logger.Warn("guard.injection_blocked",
			"execution_id", execCtx.ExecutionID,
			"agent_id", execCtx.AgentID,
			"patterns", strings.Join(append(strongHits, weakHits...), ","),
		)
		return core.Block("message matches prompt injection patterns")
	case len(weakHits) >= 2:
		g.logger.Warn("guard.injection_blocked",
			"execution_id", execCtx.ExecutionID,
			"agent_id", execCtx.AgentID,
			"patterns", strings.Join(weakHits, ","),
		)
		return core.Block("message matches prompt injection patterns")
	case len(weakHits) == 1:
		g.logger.Warn("guard.injection_suspect",
			"execution_id", execCtx.ExecutionID,
			"agent_id", execCtx.AgentID,
			"pattern", weakHits[0],
		)
	}
	return core.Allow()
}

// CheckPermission verifies the agent holds a capability. The returned reason
// names the missing capability so callers can surface it verbatim.
func (g *Guard) CheckPermission(cfg *core.AgentConfig, capability core.Capability) core.GuardDecision {
	if capability == "" || cfg.Permissions.Has(capability) {
		return core.Allow()
	}
	return core.Block(fmt.Sprintf("agent lacks required capability %q", capability))
}

// CheckRate consumes one request from the user+agent budget.
func (g *Guard) CheckRate(agentID, userID string) core.GuardDecision {
	if g.limiter.Allow(userID + ":" + agentID) {
		return core.Allow()
	}
	g.logger.Warn("guard.rate_limited", "agent_id", agentID, "user_id", userID)
	return core.Block("request rate limit exceeded")
}
