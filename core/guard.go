package core

// GuardDecision is the security layer's verdict on inbound text or a
// permission check.
type GuardDecision struct {
	Allowed bool
	Reason  string // populated when blocked; category only, never matched text
}

// Allow constructs a permitting decision.
func Allow() GuardDecision { return GuardDecision{Allowed: true} }

// Block constructs a denying decision with the given reason category.
func Block(reason string) GuardDecision { return GuardDecision{Allowed: false, Reason: reason} }
