// Package ingest converts statement grids into transactions.
package ingest

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spendtrail/spendtrail/internal/classify"
	"github.com/spendtrail/spendtrail/internal/model"
	"github.com/spendtrail/spendtrail/internal/normalize"
)

// Positional statement columns.
const (
	minFields     = 6
	colDate       = 0
	colDesc       = 1
	colWithdrawal = 3
	colDeposit    = 4
	colBalance    = 5 // running balance; never used
)

// SkipReason says why a row produced no transaction. Empty means accepted.
type SkipReason string

const (
	SkipShortRow      SkipReason = "short_row"
	SkipNoDate        SkipReason = "no_date"
	SkipNoDescription SkipReason = "no_description"
	SkipNoAmount      SkipReason = "no_amount"
)

// CategoryResolver labels a transaction. It must not fail.
type CategoryResolver interface {
	Resolve(ctx context.Context, description string, amount decimal.Decimal) model.Category
}

// Converter turns a single statement row into a transaction.
type Converter struct {
	categories CategoryResolver
}

// NewConverter creates a Converter.
func NewConverter(categories CategoryResolver) *Converter {
	return &Converter{categories: categories}
}

// Convert normalizes, classifies and categorizes row. Rows without a date,
// description or positive amount are skipped before the category lookup.
func (c *Converter) Convert(ctx context.Context, row []string, owner string) (model.Transaction, SkipReason) {
	if len(row) < minFields {
		return model.Transaction{}, SkipShortRow
	}

	date, ok := normalize.Date(row[colDate])
	desc := strings.TrimSpace(row[colDesc])
	withdrawal := normalize.Amount(row[colWithdrawal])
	deposit := normalize.Amount(row[colDeposit])

	if !ok {
		return model.Transaction{}, SkipNoDate
	}
	if desc == "" {
		return model.Transaction{}, SkipNoDescription
	}

	amount, direction := classify.Classify(desc, withdrawal, deposit)
	if !amount.IsPositive() {
		return model.Transaction{}, SkipNoAmount
	}

	return model.Transaction{
		Owner:       owner,
		Date:        date,
		Description: desc,
		Amount:      amount,
		Category:    c.categories.Resolve(ctx, desc, amount),
		Direction:   direction,
	}, ""
}
