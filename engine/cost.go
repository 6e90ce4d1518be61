package engine

import (
	"strings"

	"github.com/pravin-python/WorkSynapse-sub001/core"
)

// modelPrice holds USD prices per 1K tokens.
type modelPrice struct {
	prompt     float64
	completion float64
}

// priceTable maps "provider/model-prefix" to prices. Matching is by longest
// prefix so dated model revisions inherit their family price. Unknown models
// cost 0; estimates are informational, not billing.
var priceTable = map[string]modelPrice{
	"openai/gpt-4o":             {prompt: 0.0025, completion: 0.01},
	"openai/gpt-4o-mini":        {prompt: 0.00015, completion: 0.0006},
	"openai/gpt-4.1":            {prompt: 0.002, completion: 0.008},
	"anthropic/claude-sonnet-4": {prompt: 0.003, completion: 0.015},
	"anthropic/claude-haiku":    {prompt: 0.0008, completion: 0.004},
	"anthropic/claude-opus-4":   {prompt: 0.015, completion: 0.075},
	"gemini/gemini-2.0-flash":   {prompt: 0.0001, completion: 0.0004},
	"gemini/gemini-1.5-pro":     {prompt: 0.00125, completion: 0.005},
}

// EstimateCost returns the estimated USD cost of the given usage for a
// provider/model pair.
func EstimateCost(providerName, model string, usage core.TokenUsage) float64 {
	key := strings.ToLower(providerName) + "/" + strings.ToLower(model)

	var best modelPrice
	bestLen := -1
	for prefix, price := range priceTable {
		if strings.HasPrefix(key, prefix) && len(prefix) > bestLen {
			best = price
			bestLen = len(prefix)
		}
	}
	if bestLen < 0 {
		return 0
	}
	return float64(usage.Prompt)/1000*best.prompt + float64(usage.Completion)/1000*best.completion
}
