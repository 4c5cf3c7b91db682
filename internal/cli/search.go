package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search memory",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().IntP("max", "m", 10, "Maximum results (capped at 20)")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	max, _ := cmd.Flags().GetInt("max")

	cfg := loadConfig()
	tool, cleanup := openMemtool(cfg)
	defer cleanup()

	results, errMsg := tool.Search(cmd.Context(), strings.Join(args, " "), max, nsFlag)
	if errMsg != "" {
		fmt.Fprintln(os.Stderr, errMsg)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("No matches found.")
		return
	}

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}
