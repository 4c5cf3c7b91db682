package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/picobot/picobot/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [content...]",
		Short: "Store a fact in long-term memory",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRemember,
	}

	cmd.Flags().StringP("kind", "k", "remembered_fact", "Note kind: remembered_fact, conversation_observation, user_observation, grounded_fact")
	cmd.Flags().String("source", "", "Source of a grounded fact")
	cmd.Flags().Float64("confidence", 0, "Confidence in [0,1] (default 0.7)")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	kind, _ := cmd.Flags().GetString("kind")
	source, _ := cmd.Flags().GetString("source")
	confidence, _ := cmd.Flags().GetFloat64("confidence")

	cfg := loadConfig()
	tool, cleanup := openMemtool(cfg)
	defer cleanup()

	content := strings.Join(args, " ")
	msg := tool.Remember(cmd.Context(), content, model.NoteKind(kind), nsFlag, source, confidence)
	fmt.Println(msg)
}
