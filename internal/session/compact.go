package session

import "github.com/picobot/picobot/internal/model"

// DefaultCompactThreshold is the stored-history length at which prompts
// switch to a compacted view.
const DefaultCompactThreshold = 40

// elisionMarker stands in for the messages dropped from the middle of a
// compacted history.
const elisionMarker = "[earlier conversation omitted]"

// Policy produces a shorter message sequence for the LLM from a full
// history. Implementations must not mutate the input slice.
type Policy interface {
	Compact(history []model.ChatMessage) []model.ChatMessage
}

// Compactor applies a Policy once stored history reaches a threshold.
// The stored history itself is never modified; compaction only shapes
// what the LLM sees.
type Compactor struct {
	threshold int
	policy    Policy
}

// NewCompactor returns a Compactor with the given threshold and policy.
// Non-positive thresholds fall back to the default; a nil policy falls
// back to keep-edges.
func NewCompactor(threshold int, policy Policy) *Compactor {
	if threshold <= 0 {
		threshold = DefaultCompactThreshold
	}
	if policy == nil {
		policy = KeepEdgesPolicy{Keep: DefaultCompactThreshold / 2}
	}
	return &Compactor{threshold: threshold, policy: policy}
}

// Compact returns the history to send to the LLM and whether compaction
// was applied. Below the threshold the input is returned as-is.
func (c *Compactor) Compact(history []model.ChatMessage) ([]model.ChatMessage, bool) {
	if len(history) < c.threshold {
		return history, false
	}
	return c.policy.Compact(history), true
}

// KeepEdgesPolicy keeps the first two messages (the conversation's
// framing) and the last Keep messages, replacing the middle with a
// single elision marker.
type KeepEdgesPolicy struct {
	Keep int
}

func (p KeepEdgesPolicy) Compact(history []model.ChatMessage) []model.ChatMessage {
	keep := p.Keep
	if keep <= 0 {
		keep = DefaultCompactThreshold / 2
	}
	const head = 2
	if len(history) <= head+keep+1 {
		out := make([]model.ChatMessage, len(history))
		copy(out, history)
		return out
	}

	out := make([]model.ChatMessage, 0, head+1+keep)
	out = append(out, history[:head]...)
	out = append(out, model.ChatMessage{Role: model.RoleAssistant, Content: elisionMarker})
	out = append(out, history[len(history)-keep:]...)
	return out
}
