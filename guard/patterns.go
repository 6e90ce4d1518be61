package guard

import (
	"encoding/base64"
	"regexp"
	"strings"
)

// Signal strength of one matched pattern.
type strength int

const (
	weak strength = iota
	strong
)

// pattern is one injection heuristic: a compiled expression plus how much
// weight a match carries.
type pattern struct {
	re       *regexp.Regexp
	strength strength
	label    string
}

// injectionPatterns is the deny-list of prompt injection markers. Strong
// patterns block on a single match; weak patterns block only in combination.
var injectionPatterns = []pattern{
	{regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+instructions`), strong, "ignore_previous"},
	{regexp.MustCompile(`(?i)disregard\s+(all|your|previous)`), strong, "disregard"},
	{regexp.MustCompile(`(?i)forget\s+everything`), strong, "forget_everything"},
	{regexp.MustCompile(`(?i)new\s+instructions\s*:`), strong, "new_instructions"},
	{regexp.MustCompile(`<\|im_start\|>`), strong, "chatml_marker"},
	{regexp.MustCompile(`(?im)^\s*system\s*:`), weak, "system_role_claim"},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+`), weak, "persona_override"},
	{regexp.MustCompile(`(?i)reveal\s+(your\s+)?(system\s+prompt|instructions)`), weak, "prompt_exfiltration"},
}

// base64Candidate matches long unbroken base64-looking runs that may smuggle
// an encoded payload past the textual patterns.
var base64Candidate = regexp.MustCompile(`[A-Za-z0-9+/]{64,}={0,2}`)

// scan evaluates the message against the deny-list and returns the matched
// labels split by strength.
func scan(message string) (strongHits, weakHits []string) {
	for _, p := range injectionPatterns {
		if p.re.MatchString(message) {
			if p.strength == strong {
				strongHits = append(strongHits, p.label)
			} else {
				weakHits = append(weakHits, p.label)
			}
		}
	}
	if hasEncodedInjection(message) {
		strongHits = append(strongHits, "encoded_payload")
	}
	return strongHits, weakHits
}

// hasEncodedInjection decodes base64-looking runs and rescans the plaintext
// for strong markers.
func hasEncodedInjection(message string) bool {
	for _, candidate := range base64Candidate.FindAllString(message, 4) {
		decoded, err := base64.StdEncoding.DecodeString(candidate)
		if err != nil {
			continue
		}
		text := strings.ToLower(string(decoded))
		if strings.Contains(text, "ignore") && strings.Contains(text, "instructions") {
			return true
		}
	}
	return false
}
