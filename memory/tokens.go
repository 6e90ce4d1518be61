package memory

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/pravin-python/WorkSynapse-sub001/core"
)

// Tokenizer estimates token counts for budget decisions. Counts are estimates;
// budget enforcement tolerates small drift, so a heuristic fallback is
// acceptable when the real encoding is unavailable.
type Tokenizer interface {
	Count(text string) int
}

// perMessageOverhead approximates the per-message framing tokens chat APIs add
// around each turn.
const perMessageOverhead = 4

// TiktokenCounter counts tokens with the cl100k_base encoding, falling back to
// a character-ratio heuristic when the encoding cannot be loaded (offline
// environments).
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a counter; the heuristic fallback engages
// silently on encoding load failure.
func NewTiktokenCounter() *TiktokenCounter {
	enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	if err != nil {
		return &TiktokenCounter{}
	}
	return &TiktokenCounter{encoding: enc}
}

// Count implements Tokenizer.
func (c *TiktokenCounter) Count(text string) int {
	if c.encoding != nil {
		return len(c.encoding.Encode(text, nil, nil))
	}
	return estimate(text)
}

// estimate approximates token counts by rune class: CJK scripts average ~1.5
// characters per token while Latin text averages ~4.
func estimate(text string) int {
	var ascii, wide int
	for _, r := range text {
		if r > 0x2E7F {
			wide++
		} else {
			ascii++
		}
	}
	tokens := ascii/4 + wide*2/3
	if tokens == 0 && len(text) > 0 {
		tokens = 1
	}
	return tokens
}

// recordTokens returns the budget cost of one record, including the
// per-message framing overhead.
func recordTokens(t Tokenizer, rec core.MemoryRecord) int {
	return t.Count(rec.Content) + perMessageOverhead
}
