package main

import (
	"os"

	"github.com/picobot/picobot/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
