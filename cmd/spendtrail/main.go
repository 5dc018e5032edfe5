package main

import (
	"os"

	"github.com/spendtrail/spendtrail/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
