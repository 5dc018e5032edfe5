// Package store persists transactions per owner and answers the list and
// summary queries the dashboard needs.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spendtrail/spendtrail/internal/model"
)

// ErrInvalidOwner is returned when an owner id cannot be used as a storage key.
var ErrInvalidOwner = errors.New("invalid owner id")

// Store is an append/query collection of transactions keyed by owner and date.
//
//go:generate mockgen -destination=mocks/mock_store.go -source=store.go Store
type Store interface {
	// Append persists the whole batch or nothing.
	Append(ctx context.Context, txns []model.Transaction) ([]model.Record, error)
	// List returns the owner's records in r, newest date first.
	List(ctx context.Context, owner string, r model.DateRange) ([]model.Record, error)
	// Summary totals the owner's records in r by category, largest total first.
	Summary(ctx context.Context, owner string, r model.DateRange) ([]model.CategoryTotal, error)
	// DeleteAll removes every record of owner and reports how many went.
	DeleteAll(ctx context.Context, owner string) (int64, error)
	Close() error
}

var ownerPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// CheckOwner rejects owner ids that are empty, path-like or contain
// characters outside [A-Za-z0-9_.-].
func CheckOwner(owner string) error {
	if !ownerPattern.MatchString(owner) || owner == "." || owner == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidOwner, owner)
	}
	return nil
}

// NewRecords stamps each transaction with a fresh id and creation time.
// Amounts are kept exactly as converted.
func NewRecords(txns []model.Transaction, now time.Time) []model.Record {
	recs := make([]model.Record, len(txns))
	for i, t := range txns {
		recs[i] = model.Record{ID: uuid.New(), CreatedAt: now, Transaction: t}
	}
	return recs
}

// SortNewestFirst orders records by date descending, then by creation time
// descending. Records with equal keys keep their relative order.
func SortNewestFirst(recs []model.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.After(recs[j].Date)
		}
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}

// Summarize groups records by category. Ties on total sort by category name.
func Summarize(recs []model.Record) []model.CategoryTotal {
	byCat := make(map[model.Category]*model.CategoryTotal)
	var order []model.Category
	for _, r := range recs {
		ct, ok := byCat[r.Category]
		if !ok {
			ct = &model.CategoryTotal{Category: r.Category, Total: decimal.Zero}
			byCat[r.Category] = ct
			order = append(order, r.Category)
		}
		ct.Total = ct.Total.Add(r.Amount)
		ct.Count++
	}

	out := make([]model.CategoryTotal, 0, len(order))
	for _, c := range order {
		out = append(out, *byCat[c])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}
