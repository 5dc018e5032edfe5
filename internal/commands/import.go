package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/spendtrail/spendtrail/internal/gitops"
	"github.com/spendtrail/spendtrail/internal/pipeline"
	"github.com/spendtrail/spendtrail/internal/sheet"
)

func newImportCommand(g *globalFlags) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Ingest every statement waiting in import/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := g.root()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), root, g.logLevel)
			if err != nil {
				return err
			}
			defer a.Close()

			_, err = runImport(cmd.Context(), a, owner, cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner id the transactions belong to (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

// importResult totals one pass over the inbox.
type importResult struct {
	Files   int
	Saved   int
	Skipped int
	Failed  int
	Commit  string
}

// runImport ingests every readable inbox file for owner and moves it to
// import/processed/. Unreadable files stay in the inbox; a store failure
// stops the run.
func runImport(ctx context.Context, a *app, owner string, out io.Writer) (importResult, error) {
	var res importResult

	files, err := a.sheets.Scan(a.root)
	if err != nil {
		return res, err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No statements in import/")
		return res, nil
	}

	for _, f := range files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return res, fmt.Errorf("reading %s: %w", f.Name, err)
		}

		o, err := a.pipeline.Run(ctx, owner, f.Name, data)
		if errors.Is(err, pipeline.ErrUnreadable) {
			res.Failed++
			fmt.Fprintf(out, "Skipped %s: %v\n", f.Name, err)
			continue
		}
		if err != nil {
			return res, err
		}

		if err := sheet.MarkProcessed(a.root, f.Name); err != nil {
			return res, err
		}
		res.Files++
		res.Saved += o.Saved
		res.Skipped += o.SkippedTotal()
		fmt.Fprintf(out, "Imported %s: %d saved, %d skipped\n", f.Name, o.Saved, o.SkippedTotal())
	}

	if res.Saved > 0 && a.cfg.Git.AutoCommit && a.cfg.Storage.Driver == "file" && gitops.IsRepo(a.root) {
		msg := fmt.Sprintf("import: %d transactions from %d files", res.Saved, res.Files)
		hash, err := gitops.Commit(ctx, a.root, msg, gitAuthor(a.cfg), a.cfg.Storage.DataDir, "logs", "import")
		if err != nil {
			return res, fmt.Errorf("committing import: %w", err)
		}
		res.Commit = hash
		if hash != "" {
			fmt.Fprintf(out, "Committed %s\n", hash)
		}
	}

	return res, nil
}
