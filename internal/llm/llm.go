// Package llm provides chat completion clients, failure-aware route
// fallback, and the conversation summarizer.
package llm

import (
	"context"

	"github.com/picobot/picobot/internal/model"
)

// Completer produces an assistant reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, modelName string, messages []model.ChatMessage) (string, error)
}

// Summary is the distilled outcome of a conversation window. A nil
// *Summary from a Summarizer means nothing was worth keeping.
type Summary struct {
	Content    string
	Source     string
	Importance float64
}

// Summarizer condenses a window of chat history into a Summary.
type Summarizer interface {
	Summarize(ctx context.Context, window []model.ChatMessage) (*Summary, error)
}
