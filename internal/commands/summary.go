package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spendtrail/spendtrail/internal/model"
	"github.com/spendtrail/spendtrail/internal/normalize"
	"github.com/spendtrail/spendtrail/internal/store"
)

func newSummaryCommand(g *globalFlags) *cobra.Command {
	var owner, from, to string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print spending totals by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRange(from, to)
			if err != nil {
				return err
			}
			root, err := g.root()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), root, g.logLevel)
			if err != nil {
				return err
			}
			defer a.Close()

			totals, err := a.store.Summary(cmd.Context(), owner, r)
			if err != nil {
				return err
			}
			if len(totals) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transactions")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "CATEGORY\tTOTAL\tCOUNT\t")
			for _, t := range totals {
				fmt.Fprintf(w, "%s\t%s\t%d\t\n", t.Category, store.FormatAmount(t.Total), t.Count)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner id (required)")
	cmd.Flags().StringVar(&from, "from", "", "first day to include")
	cmd.Flags().StringVar(&to, "to", "", "last day to include")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

// parseRange builds an inclusive range from optional day strings.
func parseRange(from, to string) (model.DateRange, error) {
	var r model.DateRange
	if from != "" {
		t, ok := normalize.Date(from)
		if !ok {
			return r, fmt.Errorf("invalid --from date %q", from)
		}
		r.From = t
	}
	if to != "" {
		t, ok := normalize.Date(to)
		if !ok {
			return r, fmt.Errorf("invalid --to date %q", to)
		}
		r.To = t
	}
	return r, nil
}
