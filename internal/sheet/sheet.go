package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned when no reader can open a file.
var ErrUnsupported = errors.New("unsupported spreadsheet format")

// Grid is a sheet's rows of cell text, top to bottom. Rows may differ in length.
type Grid [][]string

// Reader converts one file format into a Grid.
type Reader interface {
	Read(r io.ReadSeeker) (Grid, error)
	Format() string
}

// Registry holds readers keyed by file extension.
type Registry struct {
	readers map[string]Reader
	sniff   []Reader
}

// NewRegistry creates an empty reader registry.
func NewRegistry() *Registry {
	return &Registry{readers: make(map[string]Reader)}
}

// Register adds a reader under its format name, which doubles as the file
// extension without the dot. Panics on duplicate format.
func (r *Registry) Register(rd Reader) {
	key := strings.ToLower(rd.Format())
	if _, ok := r.readers[key]; ok {
		panic("duplicate reader format: " + key)
	}
	r.readers[key] = rd
	r.sniff = append(r.sniff, rd)
}

// Get returns the reader for format, or nil.
func (r *Registry) Get(format string) Reader {
	return r.readers[strings.ToLower(strings.TrimPrefix(format, "."))]
}

// Supported reports whether a file name has a registered extension.
func (r *Registry) Supported(name string) bool {
	return r.Get(filepath.Ext(name)) != nil
}

// DefaultRegistry returns a registry with the xlsx, xls and csv readers,
// tried in that order when sniffing.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&XLSXReader{})
	r.Register(&XLSReader{})
	r.Register(&CSVReader{})
	return r
}

// ReadFile reads data using the reader registered for name's extension.
// Files without a known extension are tried against every reader in
// registration order.
func (r *Registry) ReadFile(name string, data []byte) (Grid, error) {
	if rd := r.Get(filepath.Ext(name)); rd != nil {
		g, err := rd.Read(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("reading %s as %s: %w", name, rd.Format(), err)
		}
		return g, nil
	}

	for _, rd := range r.sniff {
		if g, err := rd.Read(bytes.NewReader(data)); err == nil && len(g) > 0 {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrUnsupported)
}
