// Package agent runs the turn loop: it consumes inbound messages,
// assembles memory-aware prompts, completes them, and feeds the memory
// pipeline.
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/picobot/picobot/internal/bus"
	"github.com/picobot/picobot/internal/config"
	"github.com/picobot/picobot/internal/embedding"
	"github.com/picobot/picobot/internal/llm"
	"github.com/picobot/picobot/internal/model"
	"github.com/picobot/picobot/internal/notes"
	"github.com/picobot/picobot/internal/session"
	"github.com/picobot/picobot/internal/vector"
)

// DefaultMaxConcurrentTurns bounds in-flight turns across all sessions.
const DefaultMaxConcurrentTurns = 4

// cronSender marks scheduled self-messages whose replies stay off the
// bus.
const cronSender = "cron"

// Completer is the completion surface the agent needs; *llm.Router
// satisfies it.
type Completer interface {
	Complete(ctx context.Context, messages []model.ChatMessage) (string, error)
}

// VectorStore is the slice of the vector store the agent uses;
// *vector.Store satisfies it.
type VectorStore interface {
	Add(ctx context.Context, content string, metadata map[string]any, namespace string, precomputed embedding.Vector) (*model.MemoryItem, error)
	Search(ctx context.Context, query string, topK int, threshold float64, namespace string, priorityWeight float64) ([]vector.Scored, error)
}

// Agent wires the bus, session state, memory stores, and the completion
// router into one turn loop.
type Agent struct {
	bus        *bus.Bus
	sessions   *session.Manager
	compactor  *session.Compactor
	completer  Completer
	summarizer llm.Summarizer
	notes      *notes.Store
	vectors    VectorStore
	memoryMode string
	sem        *semaphore.Weighted
	logger     *zap.Logger
}

// Options configures New beyond its required collaborators.
type Options struct {
	MemoryMode         string
	MaxConcurrentTurns int
	Summarizer         llm.Summarizer
	Vectors            VectorStore
	Compactor          *session.Compactor
	Logger             *zap.Logger
}

// New builds an Agent. Vectors and Summarizer may be nil (simple or
// none memory mode); a nil logger is replaced with a no-op logger.
func New(b *bus.Bus, completer Completer, noteStore *notes.Store, opts Options) *Agent {
	if opts.MemoryMode == "" {
		opts.MemoryMode = config.MemorySimple
	}
	if opts.MaxConcurrentTurns <= 0 {
		opts.MaxConcurrentTurns = DefaultMaxConcurrentTurns
	}
	if opts.Compactor == nil {
		opts.Compactor = session.NewCompactor(0, nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Agent{
		bus:        b,
		sessions:   session.NewManager(),
		compactor:  opts.Compactor,
		completer:  completer,
		summarizer: opts.Summarizer,
		notes:      noteStore,
		vectors:    opts.Vectors,
		memoryMode: opts.MemoryMode,
		sem:        semaphore.NewWeighted(int64(opts.MaxConcurrentTurns)),
		logger:     opts.Logger,
	}
}

// Run consumes inbound messages until ctx is canceled. Each message is
// handled in its own goroutine; the semaphore bounds how many run at
// once, and the per-session lock serializes turns within a session.
func (a *Agent) Run(ctx context.Context) error {
	for {
		msg, err := a.bus.ConsumeInbound(ctx)
		if err != nil {
			return err
		}
		if err := a.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		go func(msg bus.Inbound) {
			defer a.sem.Release(1)
			a.handleTurn(ctx, msg)
		}(msg)
	}
}

// HandleTurn processes one inbound message synchronously and returns
// the reply text. The serve loop uses handleTurn; the chat CLI and
// tests use this.
func (a *Agent) HandleTurn(ctx context.Context, msg bus.Inbound) (string, error) {
	sessionKey := msg.Channel + ":" + msg.ChatID
	sess := a.sessions.Get(sessionKey)

	sess.Mu.Lock()
	prompt := a.buildPrompt(ctx, msg, sessionKey)
	history, compacted := a.compactor.Compact(sess.Snapshot())

	llmMessages := append(history, model.ChatMessage{Role: model.RoleUser, Content: prompt})
	reply, err := a.completer.Complete(ctx, llmMessages)
	if err != nil {
		sess.Mu.Unlock()
		return "", err
	}

	sess.Append(
		model.ChatMessage{Role: model.RoleUser, Content: msg.Content},
		model.ChatMessage{Role: model.RoleAssistant, Content: reply},
	)
	snapshot := sess.Snapshot()
	sess.Mu.Unlock()

	a.logger.Info("turn completed",
		zap.String("session", sessionKey),
		zap.String("trace_id", msg.ID),
		zap.Bool("compacted", compacted),
		zap.Int("history", len(snapshot)))

	a.ingestSimpleExtracts(msg.Content)
	a.spawnSummaryIngestion(snapshot, sessionKey)

	return reply, nil
}

// handleTurn is HandleTurn plus bus replies and error reporting. Turns
// initiated by the cron sender never publish a reply.
func (a *Agent) handleTurn(ctx context.Context, msg bus.Inbound) {
	reply, err := a.HandleTurn(ctx, msg)
	if err != nil {
		a.logger.Warn("turn failed",
			zap.String("trace_id", msg.ID),
			zap.Error(err))
		reply = fmt.Sprintf("Sorry, I encountered an error: %v", err)
	}

	if msg.SenderID == cronSender {
		return
	}
	out := bus.Outbound{ID: msg.ID, Channel: msg.Channel, ChatID: msg.ChatID, Content: reply}
	if err := a.bus.PublishOutbound(ctx, out); err != nil {
		a.logger.Warn("publish reply failed", zap.String("trace_id", msg.ID), zap.Error(err))
	}
}
