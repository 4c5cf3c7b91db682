package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/picobot/picobot/internal/agent"
	"github.com/picobot/picobot/internal/bus"
	"github.com/picobot/picobot/internal/llm"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively on stdin/stdout",
		Run:   runChat,
	}

	cmd.Flags().String("chat-id", "local", "Chat ID for session scoping")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	logger := newLogger()
	defer logger.Sync()

	chatID, _ := cmd.Flags().GetString("chat-id")
	sender := os.Getenv("USER")
	if sender == "" {
		sender = "user"
	}

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

	a := agent.New(bus.New(), router, openNotes(cfg), agent.Options{
		MemoryMode:         cfg.MemoryMode,
		MaxConcurrentTurns: cfg.MaxConcurrentTurns,
		Summarizer:         summarizer,
		Vectors:            vs,
		Logger:             logger,
	})

	fmt.Println("picobot ready. Ctrl-D to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		reply, err := a.HandleTurn(cmd.Context(), bus.Inbound{
			Channel:  "cli",
			ChatID:   chatID,
			SenderID: sender,
			Content:  text,
		})
		if err != nil {
			fmt.Printf("Sorry, I encountered an error: %v\n", err)
			continue
		}
		fmt.Println(reply)
	}
	fmt.Println()
}
