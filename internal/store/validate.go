package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spendtrail/spendtrail/internal/model"
)

// maxAmount bounds a single transaction.
var maxAmount = decimal.New(1, 12)

const (
	minYear = 1
	maxYear = 9999
)

// ValidationError describes one bad transaction in a batch.
type ValidationError struct {
	Index       int
	Field       string
	Description string
	Err         error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("transaction %d: %s: %s", e.Index, e.Field, e.Description)
}

func (e ValidationError) Unwrap() error { return e.Err }

// ValidationErrors is every violation found in a batch.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

// Validate checks a batch before anything is written and returns all
// violations, not just the first.
func Validate(txns []model.Transaction) ValidationErrors {
	var errs ValidationErrors
	add := func(i int, field, format string, args ...any) {
		errs = append(errs, ValidationError{Index: i, Field: field, Description: fmt.Sprintf(format, args...)})
	}

	for i, t := range txns {
		if err := CheckOwner(t.Owner); err != nil {
			errs = append(errs, ValidationError{Index: i, Field: "owner", Description: err.Error(), Err: err})
		}
		if t.Date.IsZero() {
			add(i, "date", "missing")
		} else if y := t.Date.Year(); y < minYear || y > maxYear {
			add(i, "date", "year %d out of range", y)
		}
		if strings.TrimSpace(t.Description) == "" {
			add(i, "description", "empty")
		}
		if !t.Amount.IsPositive() {
			add(i, "amount", "%s is not positive", t.Amount)
		} else if t.Amount.GreaterThanOrEqual(maxAmount) {
			add(i, "amount", "%s is too large", t.Amount)
		}
		if !t.Category.Valid() {
			add(i, "category", "unknown category %q", t.Category)
		}
		if !t.Direction.Valid() {
			add(i, "direction", "unknown direction %q", t.Direction)
		}
	}
	return errs
}

// IsValidation reports whether err carries batch validation failures.
func IsValidation(err error) bool {
	var v ValidationErrors
	return errors.As(err, &v)
}
