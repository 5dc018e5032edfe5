package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/spendtrail/spendtrail/internal/ingestlog"
)

func newHistoryCommand(g *globalFlags) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the ingest log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := g.root()
			if err != nil {
				return err
			}
			entries, err := ingestlog.Read(root)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tOWNER\tSOURCE\tROWS\tSAVED\tSKIPPED")
			for _, e := range entries {
				if owner != "" && e.Owner != owner {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
					e.Timestamp.Local().Format(time.DateTime), e.Owner, e.Source, e.Rows, e.Saved, e.Skipped)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "only show entries for this owner")

	return cmd
}
