package sheet

import (
	"fmt"
	"io"

	"github.com/extrame/xls"
)

// XLSReader reads the first worksheet of a legacy BIFF workbook.
type XLSReader struct{}

// Format returns the reader name.
func (XLSReader) Format() string { return "xls" }

// Read returns every row up to the sheet's last used row.
func (XLSReader) Read(r io.ReadSeeker) (g Grid, err error) {
	// The xls decoder panics on some malformed inputs.
	defer func() {
		if p := recover(); p != nil {
			g, err = nil, fmt.Errorf("decoding xls: %v", p)
		}
	}()

	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			g = append(g, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		g = append(g, cells)
	}
	return g, nil
}
