package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spendtrail/spendtrail/internal/buildinfo"
)

// globalFlags are shared by every subcommand that works on a project.
type globalFlags struct {
	dir      string
	logLevel string
}

func (g *globalFlags) root() (string, error) {
	abs, err := filepath.Abs(g.dir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return abs, nil
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     "spendtrail",
		Short:   "Turn bank statements into categorized transactions",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.dir, "dir", ".", "project directory")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (overrides log.level)")

	rootCmd.AddCommand(
		newInitCommand(),
		newServeCommand(g),
		newImportCommand(g),
		newSummaryCommand(g),
		newHistoryCommand(g),
		newMigrateCommand(g),
	)

	return rootCmd
}
