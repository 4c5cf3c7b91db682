package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/picobot/picobot/internal/bus"
	"github.com/picobot/picobot/internal/config"
	"github.com/picobot/picobot/internal/notes"
	"github.com/picobot/picobot/internal/vector"
)

const (
	sessionSearchTopK      = 5
	sessionSearchThreshold = 0.08
	sessionSearchWeight    = 0.3
	sessionNotesTake       = 3
	snippetMaxChars        = 260
)

// buildPrompt assembles the turn prompt: conversation context header,
// optional file-memory notes, optional session vector notes, then the
// user message. Vector search failures degrade to a prompt without
// session notes rather than failing the turn.
func (a *Agent) buildPrompt(ctx context.Context, msg bus.Inbound, sessionKey string) string {
	parts := []string{
		fmt.Sprintf("[Conversation context]\nchannel=%s chat_id=%s sender_id=%s",
			msg.Channel, msg.ChatID, msg.SenderID),
	}

	if a.memoryMode != config.MemoryNone {
		if mc := a.notes.MemoryContext(notes.MaxContextChars); mc != "" {
			parts = append(parts, "[Notes from memory]\n"+mc)
		}
		if section := a.sessionMemorySection(ctx, msg.Content, sessionKey); section != "" {
			parts = append(parts, section)
		}
	}

	parts = append(parts, "[User message]\n"+msg.Content)
	return strings.Join(parts, "\n\n")
}

// sessionMemorySection searches the session namespace and renders the
// top matches as scored bullets, or "" when smart memory is off, the
// search fails, or nothing matches.
func (a *Agent) sessionMemorySection(ctx context.Context, query, sessionKey string) string {
	if a.memoryMode != config.MemorySmart || a.vectors == nil {
		return ""
	}

	ns := sessionNamespace(sessionKey)
	results, err := a.vectors.Search(ctx, query, sessionSearchTopK, sessionSearchThreshold, ns, sessionSearchWeight)
	if err != nil {
		a.logger.Warn("session memory search failed",
			zap.String("namespace", ns), zap.Error(err))
		return ""
	}
	if len(results) == 0 {
		return ""
	}
	if len(results) > sessionNotesTake {
		results = results[:sessionNotesTake]
	}

	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("- (%.2f) %s", r.Similarity, snippet(r.Item.Content, snippetMaxChars)))
	}
	return "[Notes from session memory]\n" + strings.Join(lines, "\n")
}

// sessionNamespace maps a session key onto a valid vector namespace,
// falling back to "default" for keys that sanitize to nothing.
func sessionNamespace(sessionKey string) string {
	ns := vector.SanitizeNamespace(sessionKey)
	if ns == "" {
		return "default"
	}
	return ns
}

// snippet collapses whitespace and caps the text for prompt bullets.
func snippet(text string, maxChars int) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if len(collapsed) <= maxChars {
		return collapsed
	}
	return collapsed[:maxChars] + "..."
}
