package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Read one memory by path (vector/<id>, MEMORY.md, or YYYY-MM-DD.md)",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	cmd.Flags().Int("from", 0, "First line (1-based)")
	cmd.Flags().Int("lines", 0, "Number of lines")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	from, _ := cmd.Flags().GetInt("from")
	lines, _ := cmd.Flags().GetInt("lines")

	cfg := loadConfig()
	tool, cleanup := openMemtool(cfg)
	defer cleanup()

	out := tool.Get(cmd.Context(), args[0], nsFlag, from, lines)
	if strings.HasPrefix(out, "Error:") {
		fmt.Fprintln(os.Stderr, out)
		os.Exit(1)
	}
	fmt.Println(out)
}
