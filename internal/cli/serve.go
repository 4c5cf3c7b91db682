package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/picobot/picobot/internal/agent"
	"github.com/picobot/picobot/internal/bus"
	"github.com/picobot/picobot/internal/llm"
	"github.com/picobot/picobot/internal/model"
	"github.com/picobot/picobot/internal/session"
)

// routerCompleter adapts the route-fallback router to the
// fixed-model Completer the summarizer expects.
type routerCompleter struct{ r *llm.Router }

func (c routerCompleter) Complete(ctx context.Context, _ string, messages []model.ChatMessage) (string, error) {
	return c.r.Complete(ctx, messages)
}

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent loop until interrupted",
		Run:   runServe,
	}

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	logger := newLogger()
	defer logger.Sync()

	b := bus.New()
	vectors := openVectors(cfg)
	if vectors != nil {
		defer vectors.Close()
	}
	router := newRouter(cfg, logger)

	var vs agent.VectorStore
	var summarizer llm.Summarizer
	if vectors != nil {
		vs = vectors
	}
	if len(cfg.Routes) > 0 {
		summarizer = llm.NewChatSummarizer(routerCompleter{router}, cfg.Routes[0].Model)
	}

	a := agent.New(b, router, openNotes(cfg), agent.Options{
		MemoryMode:         cfg.MemoryMode,
		MaxConcurrentTurns: cfg.MaxConcurrentTurns,
		Summarizer:         summarizer,
		Vectors:            vs,
		Compactor:          session.NewCompactor(0, nil),
		Logger:             logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Drain replies; channel adapters subscribe here once wired in.
	go func() {
		for {
			select {
			case out := <-b.Outbound():
				logger.Info("outbound reply",
					zap.String("channel", out.Channel),
					zap.String("chat_id", out.ChatID),
					zap.Int("chars", len(out.Content)))
			case <-ctx.Done():
				return
			}
		}
	}()

	logger.Info("agent loop starting",
		zap.String("memory_mode", cfg.MemoryMode),
		zap.Int("max_concurrent_turns", cfg.MaxConcurrentTurns))
	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		exitErr("agent loop", err)
	}
}
