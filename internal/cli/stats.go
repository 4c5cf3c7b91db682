package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/picobot/picobot/internal/vector"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show vector memory statistics per namespace",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	dbPath := filepath.Join(cfg.Workspace, "memory", "vectors.db")
	s, err := vector.NewStore(dbPath, newEmbedder(cfg), cfg.MaxMemories, "default")
	if err != nil {
		exitErr("open vector store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}
	if len(stats) == 0 {
		fmt.Println("No memories stored.")
		return
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}
