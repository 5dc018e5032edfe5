package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spendtrail/spendtrail/internal/model"
)

// Header is the first line of every ledger file.
const Header = "id,created_at,date,description,amount,category,direction"

// ExportHeader is the first line of a CSV export.
const ExportHeader = "Date,Description,Category,Amount,Type"

const (
	numFields        = 7
	dateFormat       = "2006-01-02"
	exportDateFormat = "02/01/2006"
	colID            = 0
	colCreated       = 1
	colDate          = 2
	colDesc          = 3
	colAmount        = 4
	colCategory      = 5
	colDirection     = 6
)

// ReadRecords reads a ledger file. The owner is not stored per row.
func ReadRecords(r io.Reader, owner string) ([]model.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	recs := make([]model.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := UnmarshalRecord(row, owner)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// WriteRecords writes a complete ledger file, header included.
func WriteRecords(w io.Writer, recs []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, rec := range recs {
		if err := cw.Write(MarshalRecord(rec)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatAmount prints d with at least two decimals and never drops digits.
func FormatAmount(d decimal.Decimal) string {
	if d.Exponent() < -2 {
		return d.String()
	}
	return d.StringFixed(2)
}

// MarshalRecord converts a Record to a ledger row.
func MarshalRecord(rec model.Record) []string {
	row := make([]string, numFields)
	row[colID] = rec.ID.String()
	row[colCreated] = rec.CreatedAt.UTC().Format(time.RFC3339Nano)
	row[colDate] = rec.Date.Format(dateFormat)
	row[colDesc] = rec.Description
	row[colAmount] = FormatAmount(rec.Amount)
	row[colCategory] = string(rec.Category)
	row[colDirection] = string(rec.Direction)
	return row
}

// UnmarshalRecord converts a ledger row to a Record owned by owner.
func UnmarshalRecord(row []string, owner string) (model.Record, error) {
	if len(row) != numFields {
		return model.Record{}, fmt.Errorf("expected %d fields, got %d", numFields, len(row))
	}

	id, err := uuid.Parse(row[colID])
	if err != nil {
		return model.Record{}, fmt.Errorf("parsing id %q: %w", row[colID], err)
	}
	created, err := time.Parse(time.RFC3339Nano, row[colCreated])
	if err != nil {
		return model.Record{}, fmt.Errorf("parsing created_at %q: %w", row[colCreated], err)
	}
	date, err := time.Parse(dateFormat, row[colDate])
	if err != nil {
		return model.Record{}, fmt.Errorf("parsing date %q: %w", row[colDate], err)
	}
	amount, err := decimal.NewFromString(row[colAmount])
	if err != nil {
		return model.Record{}, fmt.Errorf("parsing amount %q: %w", row[colAmount], err)
	}
	cat, ok := model.ParseCategory(row[colCategory])
	if !ok {
		return model.Record{}, fmt.Errorf("unknown category %q", row[colCategory])
	}
	dir := model.Direction(row[colDirection])
	if !dir.Valid() {
		return model.Record{}, fmt.Errorf("unknown direction %q", row[colDirection])
	}

	return model.Record{
		ID:        id,
		CreatedAt: created,
		Transaction: model.Transaction{
			Owner:       owner,
			Date:        date,
			Description: row[colDesc],
			Amount:      amount,
			Category:    cat,
			Direction:   dir,
		},
	}, nil
}

// WriteCSV writes the user-facing export: one line per record in the given
// order, dates as dd/mm/yyyy.
func WriteCSV(w io.Writer, recs []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(ExportHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, rec := range recs {
		row := []string{
			rec.Date.Format(exportDateFormat),
			rec.Description,
			string(rec.Category),
			FormatAmount(rec.Amount),
			string(rec.Direction),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
