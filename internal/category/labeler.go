// Package category assigns spending labels to transactions.
package category

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/spendtrail/spendtrail/internal/model"
)

// ErrNoMatch is returned by labelers that have no opinion about a row.
var ErrNoMatch = errors.New("no category match")

// Labeler suggests a category label for a transaction. The reply is free
// text; callers must check it against the label set.
//
//go:generate mockgen -destination=mocks/mock_labeler.go -source=labeler.go Labeler
type Labeler interface {
	Label(ctx context.Context, description string, amount decimal.Decimal) (string, error)
}

// Static always replies with the same label.
type Static model.Category

// Label implements Labeler.
func (s Static) Label(context.Context, string, decimal.Decimal) (string, error) {
	return string(s), nil
}

// Chain asks each labeler in turn and returns the first reply that is in
// the label set.
type Chain []Labeler

// Label implements Labeler.
func (c Chain) Label(ctx context.Context, description string, amount decimal.Decimal) (string, error) {
	var errs []error
	for _, l := range c {
		reply, err := l.Label(ctx, description, amount)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, ok := model.ParseCategory(reply); ok {
			return reply, nil
		}
	}
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return "", ErrNoMatch
}
