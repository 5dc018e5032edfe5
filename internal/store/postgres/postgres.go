// Package postgres is a store.Store on PostgreSQL using pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spendtrail/spendtrail/internal/model"
	"github.com/spendtrail/spendtrail/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id          UUID PRIMARY KEY,
	owner       TEXT NOT NULL,
	date        DATE NOT NULL,
	description TEXT NOT NULL,
	amount      NUMERIC NOT NULL CHECK (amount > 0),
	category    TEXT NOT NULL,
	direction   TEXT NOT NULL CHECK (direction IN ('debit', 'credit')),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS transactions_owner_date_idx ON transactions (owner, date DESC);
`

var columns = []string{"id", "owner", "date", "description", "amount", "category", "direction", "created_at"}

// Store keeps transactions in the transactions table.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open connects to url and checks the connection.
func Open(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Migrate creates the table and index if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// Append copies the batch inside one transaction.
func (s *Store) Append(ctx context.Context, txns []model.Transaction) ([]model.Record, error) {
	if len(txns) == 0 {
		return nil, nil
	}
	if verrs := store.Validate(txns); len(verrs) > 0 {
		return nil, verrs
	}

	recs := store.NewRecords(txns, s.now().UTC())
	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = []any{r.ID, r.Owner, r.Date, r.Description, toNumeric(r.Amount), string(r.Category), string(r.Direction), r.CreatedAt}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"transactions"}, columns, pgx.CopyFromRows(rows)); err != nil {
		return nil, fmt.Errorf("copying transactions: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transactions: %w", err)
	}
	return recs, nil
}

const listQuery = `
SELECT id, date, description, amount, category, direction, created_at
FROM transactions
WHERE owner = $1
  AND ($2::date IS NULL OR date >= $2::date)
  AND ($3::date IS NULL OR date <= $3::date)
ORDER BY date DESC, created_at DESC`

// List returns the owner's records inside r, newest first.
func (s *Store) List(ctx context.Context, owner string, r model.DateRange) ([]model.Record, error) {
	if err := store.CheckOwner(owner); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, listQuery, owner, dateArg(r.From), dateArg(r.To))
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var (
			rec       model.Record
			id        uuid.UUID
			amount    pgtype.Numeric
			category  string
			direction string
		)
		if err := rows.Scan(&id, &rec.Date, &rec.Description, &amount, &category, &direction, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		cat, ok := model.ParseCategory(category)
		if !ok {
			return nil, fmt.Errorf("transaction %s: unknown category %q", id, category)
		}
		rec.ID = id
		rec.Owner = owner
		rec.Amount = fromNumeric(amount)
		rec.Category = cat
		rec.Direction = model.Direction(direction)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading transactions: %w", err)
	}
	return out, nil
}

const summaryQuery = `
SELECT category, SUM(amount), COUNT(*)
FROM transactions
WHERE owner = $1
  AND ($2::date IS NULL OR date >= $2::date)
  AND ($3::date IS NULL OR date <= $3::date)
GROUP BY category
ORDER BY SUM(amount) DESC, category`

// Summary totals the owner's records inside r by category.
func (s *Store) Summary(ctx context.Context, owner string, r model.DateRange) ([]model.CategoryTotal, error) {
	if err := store.CheckOwner(owner); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, summaryQuery, owner, dateArg(r.From), dateArg(r.To))
	if err != nil {
		return nil, fmt.Errorf("querying summary: %w", err)
	}
	defer rows.Close()

	out := []model.CategoryTotal{}
	for rows.Next() {
		var (
			category string
			total    pgtype.Numeric
			count    int64
		)
		if err := rows.Scan(&category, &total, &count); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		out = append(out, model.CategoryTotal{
			Category: model.Category(category),
			Total:    fromNumeric(total),
			Count:    int(count),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}
	return out, nil
}

// DeleteAll removes every row of owner.
func (s *Store) DeleteAll(ctx context.Context, owner string) (int64, error) {
	if err := store.CheckOwner(owner); err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE owner = $1`, owner)
	if err != nil {
		return 0, fmt.Errorf("deleting transactions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func dateArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
