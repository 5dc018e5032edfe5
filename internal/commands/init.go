package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spendtrail/spendtrail/internal/config"
	"github.com/spendtrail/spendtrail/internal/gitops"
)

const rulesTemplate = `# Keyword rules are checked in order; the first match wins.
# Categories: Food, Transport, Utilities, Shopping, Entertainment,
# Healthcare, Education, Bills, Other.
rules: []
`

func newInitCommand() *cobra.Command {
	var noGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new spendtrail project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, absDir, !noGit)
		},
	}

	cmd.Flags().BoolVar(&noGit, "no-git", false, "skip git init and the initial commit")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, withGit bool) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default()

	dirs := []string{
		"import",
		filepath.Join("import", "processed"),
		cfg.Storage.DataDir,
		"logs",
		"rules",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, cfg.Categorize.RulesFile), []byte(rulesTemplate), 0o644); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}

	gitignore := ".env\n" + cfg.Archive.Dir + "/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	for _, d := range []string{"import", cfg.Storage.DataDir} {
		if err := os.WriteFile(filepath.Join(dir, d, ".gitkeep"), []byte{}, 0o644); err != nil {
			return fmt.Errorf("writing .gitkeep: %w", err)
		}
	}

	hash := "no git"
	if withGit {
		ctx := cmd.Context()
		if err := gitops.Init(ctx, dir); err != nil {
			return err
		}
		h, err := gitops.Commit(ctx, dir, "init: Initialize spendtrail project", gitAuthor(cfg))
		if err != nil {
			return fmt.Errorf("initial commit: %w", err)
		}
		hash = h
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized spendtrail project at %s (%s)\n", dir, hash)
	return nil
}

func gitAuthor(cfg *config.Config) gitops.Author {
	return gitops.Author{Name: cfg.Git.AuthorName, Email: cfg.Git.AuthorEmail}
}
