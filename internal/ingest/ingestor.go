package ingest

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/spendtrail/spendtrail/internal/model"
	"github.com/spendtrail/spendtrail/internal/sheet"
)

// DefaultWorkers is the number of rows converted at once.
const DefaultWorkers = 4

// Result is the outcome of ingesting one sheet.
type Result struct {
	Transactions []model.Transaction // accepted rows, in sheet order
	Rows         int                 // data rows after the header
	Skipped      map[SkipReason]int
}

// SkippedTotal returns the number of rows that produced no transaction.
func (r *Result) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// Ingestor locates the data region of a sheet and converts its rows.
type Ingestor struct {
	conv    *Converter
	workers int
	log     zerolog.Logger
}

// NewIngestor creates an Ingestor. workers bounds concurrent row conversions
// (and so concurrent category lookups); <= 0 uses DefaultWorkers.
func NewIngestor(conv *Converter, workers int, log zerolog.Logger) *Ingestor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Ingestor{conv: conv, workers: workers, log: log}
}

// HeaderIndex returns the first row whose first cell mentions "date",
// or 0 when there is none.
func HeaderIndex(g sheet.Grid) int {
	for i, row := range g {
		if len(row) > 0 && strings.Contains(strings.ToLower(row[0]), "date") {
			return i
		}
	}
	return 0
}

// DataRows returns the rows strictly after the header.
func DataRows(g sheet.Grid) sheet.Grid {
	if len(g) == 0 {
		return nil
	}
	return g[HeaderIndex(g)+1:]
}

// Ingest converts every data row of g for owner. The only error is ctx's,
// in which case no partial result is returned.
func (in *Ingestor) Ingest(ctx context.Context, g sheet.Grid, owner string) (*Result, error) {
	rows := DataRows(g)

	txns := make([]model.Transaction, len(rows))
	reasons := make([]SkipReason, len(rows))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(in.workers)
	for i, row := range rows {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			txns[i], reasons[i] = in.conv.Convert(egCtx, row, owner)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Rows: len(rows), Skipped: make(map[SkipReason]int)}
	for i := range rows {
		if reasons[i] != "" {
			res.Skipped[reasons[i]]++
			continue
		}
		res.Transactions = append(res.Transactions, txns[i])
	}

	in.log.Debug().
		Str("owner", owner).
		Int("rows", res.Rows).
		Int("accepted", len(res.Transactions)).
		Int("skipped", res.SkippedTotal()).
		Msg("sheet ingested")

	return res, nil
}
