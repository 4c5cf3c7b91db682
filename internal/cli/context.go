package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/picobot/picobot/internal/notes"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Print the memory context as the assistant would see it",
		Run:   runContext,
	}

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx := openNotes(cfg).MemoryContext(notes.MaxContextChars)
	if ctx == "" {
		fmt.Println("No memory yet.")
		return
	}
	fmt.Println(ctx)
}
