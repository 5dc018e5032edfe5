package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction says whether a transaction decreases or increases the balance.
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// Valid reports whether d is debit or credit.
func (d Direction) Valid() bool {
	return d == Debit || d == Credit
}

// Transaction is one statement row accepted by the ingestion pipeline.
// It is built once and never mutated afterwards.
type Transaction struct {
	Owner       string
	Date        time.Time
	Description string
	Amount      decimal.Decimal // always > 0
	Category    Category
	Direction   Direction
}

// Record is a Transaction as returned by a store.
type Record struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Transaction
}

// DateRange bounds a query by calendar date, both ends inclusive.
// A zero From or To leaves that side open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// CategoryTotal is one row of a per-category summary.
type CategoryTotal struct {
	Category Category
	Total    decimal.Decimal
	Count    int
}
