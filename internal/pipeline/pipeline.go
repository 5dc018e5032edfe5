// Package pipeline turns one uploaded statement file into stored
// transactions: read the sheet, ingest the rows, persist the batch, then
// archive the raw bytes and record the run in the ingest log.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spendtrail/spendtrail/internal/archive"
	"github.com/spendtrail/spendtrail/internal/ingest"
	"github.com/spendtrail/spendtrail/internal/ingestlog"
	"github.com/spendtrail/spendtrail/internal/logger"
	"github.com/spendtrail/spendtrail/internal/sheet"
	"github.com/spendtrail/spendtrail/internal/store"
)

// ErrUnreadable wraps every failure to turn the upload into a grid.
var ErrUnreadable = errors.New("unreadable statement file")

// Options wires a Pipeline. Archiver and LogRoot are optional.
type Options struct {
	Sheets   *sheet.Registry
	Ingestor *ingest.Ingestor
	Store    store.Store
	Archiver archive.Archiver
	LogRoot  string
}

// Pipeline runs statement files through ingestion and persistence.
type Pipeline struct {
	sheets   *sheet.Registry
	ingestor *ingest.Ingestor
	store    store.Store
	archiver archive.Archiver
	logRoot  string
	now      func() time.Time
}

// New returns a Pipeline. A nil Sheets uses sheet.DefaultRegistry and a
// nil Archiver keeps nothing.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		sheets:   opts.Sheets,
		ingestor: opts.Ingestor,
		store:    opts.Store,
		archiver: opts.Archiver,
		logRoot:  opts.LogRoot,
		now:      time.Now,
	}
	if p.sheets == nil {
		p.sheets = sheet.DefaultRegistry()
	}
	if p.archiver == nil {
		p.archiver = archive.Nop{}
	}
	return p
}

// Outcome summarizes one run.
type Outcome struct {
	Source  string
	Rows    int
	Saved   int
	Skipped map[ingest.SkipReason]int
	Archive string
}

// SkippedTotal is the number of data rows that produced no transaction.
func (o *Outcome) SkippedTotal() int {
	n := 0
	for _, c := range o.Skipped {
		n += c
	}
	return n
}

// Run ingests data for owner. Nothing is stored if ctx ends before the
// batch is complete. Archive and ingest-log failures are logged only.
func (p *Pipeline) Run(ctx context.Context, owner, name string, data []byte) (*Outcome, error) {
	log := logger.FromContext(ctx).With().Str("owner", owner).Str("source", name).Logger()

	if err := store.CheckOwner(owner); err != nil {
		return nil, err
	}

	grid, err := p.sheets.ReadFile(name, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	res, err := p.ingestor.Ingest(ctx, grid, owner)
	if err != nil {
		return nil, fmt.Errorf("ingesting %s: %w", name, err)
	}

	out := &Outcome{Source: name, Rows: res.Rows, Skipped: res.Skipped}
	if len(res.Transactions) > 0 {
		recs, err := p.store.Append(ctx, res.Transactions)
		if err != nil {
			return nil, fmt.Errorf("saving transactions: %w", err)
		}
		out.Saved = len(recs)
	}

	if loc, err := p.archiver.Archive(ctx, owner, name, data); err != nil {
		log.Warn().Err(err).Msg("archiving upload failed")
	} else {
		out.Archive = loc
	}

	if p.logRoot != "" {
		entry := ingestlog.Entry{
			Timestamp: p.now(),
			Owner:     owner,
			Source:    name,
			Rows:      out.Rows,
			Saved:     out.Saved,
			Skipped:   out.SkippedTotal(),
		}
		if err := ingestlog.Append(p.logRoot, []ingestlog.Entry{entry}); err != nil {
			log.Warn().Err(err).Msg("writing ingest log failed")
		}
	}

	log.Info().
		Int("rows", out.Rows).
		Int("saved", out.Saved).
		Int("skipped", out.SkippedTotal()).
		Msg("statement ingested")
	return out, nil
}
