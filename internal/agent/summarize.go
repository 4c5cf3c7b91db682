package agent

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/picobot/picobot/internal/config"
	"github.com/picobot/picobot/internal/model"
)

const (
	// minUserMessagesForSummary gates summarization: fewer new user
	// messages than this since the watermark is not worth an LLM call.
	minUserMessagesForSummary = 3
	// summaryWindowOverlap reaches back before the watermark so the
	// summary keeps continuity with what came before.
	summaryWindowOverlap = 6
	// summaryWindowMax caps the window handed to the summarizer.
	summaryWindowMax = 18
	// summaryObservationCap bounds observations mined from one summary.
	summaryObservationCap = 3
	// summaryTimeout bounds one background ingestion task.
	summaryTimeout = 2 * time.Minute
)

// spawnSummaryIngestion kicks off background summarization of the
// history past the session's watermark. Overlapping tasks for one
// session may duplicate a summary; the monotonic watermark keeps them
// from losing progress.
func (a *Agent) spawnSummaryIngestion(history []model.ChatMessage, sessionKey string) {
	if a.memoryMode == config.MemoryNone || a.summarizer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), summaryTimeout)
		defer cancel()
		a.ingestSummary(ctx, history, sessionKey)
	}()
}

func (a *Agent) ingestSummary(ctx context.Context, history []model.ChatMessage, sessionKey string) {
	watermark := a.sessions.Watermark(sessionKey)
	if watermark >= len(history) {
		return
	}
	if countUserMessages(history[watermark:]) < minUserMessagesForSummary {
		return
	}

	start := watermark - summaryWindowOverlap
	if start < 0 {
		start = 0
	}
	window := history[start:]
	if len(window) > summaryWindowMax {
		start += len(window) - summaryWindowMax
		window = history[start:]
	}

	summary, err := a.summarizer.Summarize(ctx, window)
	if err != nil {
		// Watermark stays put so the next trigger retries this span.
		a.logger.Warn("summarization failed",
			zap.String("session", sessionKey), zap.Error(err))
		return
	}
	if summary == nil || strings.TrimSpace(summary.Content) == "" {
		a.sessions.AdvanceWatermark(sessionKey, len(history))
		a.logger.Debug("nothing to summarize",
			zap.String("session", sessionKey), zap.Int("watermark", len(history)))
		return
	}

	if err := a.notes.AppendConversationObservation(summary.Content); err != nil {
		a.logger.Warn("record summary failed", zap.Error(err))
	}
	if err := a.notes.AppendExtractedFacts([]string{summary.Content}); err != nil {
		a.logger.Warn("record extracted fact failed", zap.Error(err))
	}
	for _, obs := range ExtractUserObservations(summary.Content, summaryObservationCap) {
		if err := a.notes.AppendUserObservation(obs); err != nil {
			a.logger.Warn("record user observation failed", zap.Error(err))
		}
	}

	if a.memoryMode == config.MemorySmart && a.vectors != nil {
		meta := map[string]any{
			"kind":        "conversation_observation",
			"source":      summary.Source,
			"session":     sessionKey,
			"start_index": start,
			"end_index":   len(history),
			"importance":  summary.Importance,
		}
		if _, err := a.vectors.Add(ctx, summary.Content, meta, sessionNamespace(sessionKey), nil); err != nil {
			a.logger.Warn("store summary failed",
				zap.String("session", sessionKey), zap.Error(err))
		}
	}

	a.sessions.AdvanceWatermark(sessionKey, len(history))
	a.logger.Debug("watermark advanced",
		zap.String("session", sessionKey), zap.Int("watermark", len(history)))
}

func countUserMessages(msgs []model.ChatMessage) int {
	n := 0
	for _, m := range msgs {
		if m.Role == model.RoleUser {
			n++
		}
	}
	return n
}
