// Package filestore keeps each owner's transactions in per-month CSV
// ledgers under <root>/<owner>/<YYYY>/<MM>/transactions.csv.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spendtrail/spendtrail/internal/model"
	"github.com/spendtrail/spendtrail/internal/store"
)

// FileName is the ledger file inside each month directory.
const FileName = "transactions.csv"

// Store is a store.Store backed by CSV files. Writes are serialized.
type Store struct {
	root string
	mu   sync.Mutex
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir, now: time.Now}
}

type monthKey struct {
	owner string
	year  int
	month int
}

// Append validates the batch, then rewrites every touched month file via a
// temp file and rename. Nothing is written if validation or staging fails.
func (s *Store) Append(ctx context.Context, txns []model.Transaction) ([]model.Record, error) {
	if len(txns) == 0 {
		return nil, nil
	}
	if verrs := store.Validate(txns); len(verrs) > 0 {
		return nil, verrs
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recs := store.NewRecords(txns, s.now().UTC())

	groups := make(map[monthKey][]model.Record)
	var order []monthKey
	for _, r := range recs {
		k := monthKey{owner: r.Owner, year: r.Date.Year(), month: int(r.Date.Month())}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	type staged struct{ tmp, dst string }
	var done []staged
	cleanup := func() {
		for _, st := range done {
			os.Remove(st.tmp)
		}
	}

	for _, k := range order {
		dst := s.monthPath(k.owner, k.year, k.month)
		existing, err := readFile(dst, k.owner)
		if err != nil {
			cleanup()
			return nil, err
		}
		tmp, err := stage(dst, append(existing, groups[k]...))
		if err != nil {
			cleanup()
			return nil, err
		}
		done = append(done, staged{tmp: tmp, dst: dst})
	}

	for i, st := range done {
		if err := os.Rename(st.tmp, st.dst); err != nil {
			for _, rest := range done[i:] {
				os.Remove(rest.tmp)
			}
			return nil, fmt.Errorf("replacing ledger %s: %w", st.dst, err)
		}
	}
	return recs, nil
}

// List returns the owner's records inside r, newest first.
func (s *Store) List(ctx context.Context, owner string, r model.DateRange) ([]model.Record, error) {
	if err := store.CheckOwner(owner); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := s.monthFiles(owner)
	if err != nil {
		return nil, err
	}

	var out []model.Record
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := readFile(p, owner)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if r.Contains(rec.Date) {
				out = append(out, rec)
			}
		}
	}
	store.SortNewestFirst(out)
	return out, nil
}

// Summary totals List's result by category.
func (s *Store) Summary(ctx context.Context, owner string, r model.DateRange) ([]model.CategoryTotal, error) {
	recs, err := s.List(ctx, owner, r)
	if err != nil {
		return nil, err
	}
	return store.Summarize(recs), nil
}

// DeleteAll removes the owner's whole directory.
func (s *Store) DeleteAll(ctx context.Context, owner string) (int64, error) {
	if err := store.CheckOwner(owner); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := s.monthFiles(owner)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, p := range paths {
		recs, err := readFile(p, owner)
		if err != nil {
			return 0, err
		}
		n += int64(len(recs))
	}
	if err := os.RemoveAll(filepath.Join(s.root, owner)); err != nil {
		return 0, fmt.Errorf("removing ledgers for %s: %w", owner, err)
	}
	return n, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Root returns the directory the ledgers live under.
func (s *Store) Root() string { return s.root }

func (s *Store) monthPath(owner string, year, month int) string {
	return filepath.Join(s.root, owner, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), FileName)
}

func (s *Store) monthFiles(owner string) ([]string, error) {
	pattern := filepath.Join(s.root, owner, "[0-9][0-9][0-9][0-9]", "[0-9][0-9]", FileName)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("listing ledgers: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func readFile(path, owner string) ([]model.Record, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	defer f.Close()

	recs, err := store.ReadRecords(f, owner)
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}
	return recs, nil
}

// stage writes recs next to dst and returns the temp file's path.
func stage(dst string, recs []model.Record) (string, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating ledger dir: %w", err)
	}

	var buf bytes.Buffer
	if err := store.WriteRecords(&buf, recs); err != nil {
		return "", fmt.Errorf("encoding ledger %s: %w", dst, err)
	}

	f, err := os.CreateTemp(dir, ".transactions-*.csv")
	if err != nil {
		return "", fmt.Errorf("creating temp ledger: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing temp ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing temp ledger: %w", err)
	}
	return f.Name(), nil
}
