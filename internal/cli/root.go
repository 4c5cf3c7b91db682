// Package cli implements the picobot CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/picobot/picobot/internal/config"
	"github.com/picobot/picobot/internal/embedding"
	"github.com/picobot/picobot/internal/llm"
	"github.com/picobot/picobot/internal/memtool"
	"github.com/picobot/picobot/internal/notes"
	"github.com/picobot/picobot/internal/vector"
)

var (
	configPath string
	nsFlag     string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "picobot",
	Short: "Personal chat assistant with long-term memory",
	Long:  "A personal chat assistant that remembers: markdown notes plus a SQLite vector store, assembled into every prompt.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config path (default: $PICOBOT_CONFIG or ~/.picobot/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&nsFlag, "ns", "n", "", "Memory namespace")
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("PICOBOT_CONFIG"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".picobot", "config.yaml")
}

func loadConfig() config.Config {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		exitErr("load config", err)
	}
	return cfg
}

func newLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func openNotes(cfg config.Config) *notes.Store {
	s, err := notes.New(cfg.Workspace)
	if err != nil {
		exitErr("open file memory", err)
	}
	return s
}

func newEmbedder(cfg config.Config) embedding.Embedder {
	var provider embedding.Embedder
	switch cfg.Embedding.Provider {
	case "openai":
		provider = embedding.NewOpenAIEmbedder(cfg.Embedding.BaseURL, cfg.APIKey, cfg.Embedding.Model, 0)
	default:
		provider = embedding.NewOllamaEmbedder(cfg.Embedding.BaseURL, cfg.Embedding.Model)
	}
	return embedding.NewCachedEmbedder(provider, nil)
}

// openVectors opens the vector store, or returns nil when the memory
// mode does not use it.
func openVectors(cfg config.Config) *vector.Store {
	if cfg.MemoryMode != config.MemorySmart {
		return nil
	}
	dbPath := filepath.Join(cfg.Workspace, "memory", "vectors.db")
	s, err := vector.NewStore(dbPath, newEmbedder(cfg), cfg.MaxMemories, "default")
	if err != nil {
		exitErr("open vector store", err)
	}
	return s
}

func newRouter(cfg config.Config, logger *zap.Logger) *llm.Router {
	routes := make([]llm.Route, 0, len(cfg.Routes))
	for _, r := range cfg.Routes {
		baseURL := r.BaseURL
		if baseURL == "" && r.Provider == "ollama" {
			baseURL = "http://localhost:11434/v1"
		}
		routes = append(routes, llm.Route{
			Provider: r.Provider,
			Model:    r.Model,
			Client:   llm.NewOpenAIClient(baseURL, cfg.APIKey),
		})
	}
	return llm.NewRouter(routes, logger)
}

// openMemtool builds the memory tool surface plus a cleanup for the
// vector store, which may be nil.
func openMemtool(cfg config.Config) (*memtool.Tool, func()) {
	vectors := openVectors(cfg)
	cleanup := func() {}
	var vs memtool.VectorStore
	if vectors != nil {
		vs = vectors
		cleanup = func() { vectors.Close() }
	}
	return memtool.New(openNotes(cfg), vs, cfg.MemoryMode), cleanup
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
