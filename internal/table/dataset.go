// Package table holds the in-memory tabular model used by the merge job:
// positional datasets read from a sheet, datasets re-indexed by a key column,
// and the left join / sanitize / CSV steps that operate on them.
//
// Every cell is a string. A missing cell is the empty string; there is no
// separate null marker because the only sink is CSV text.
package table

import (
	"fmt"
	"strings"
)

// Dataset is an ordered set of named columns and positional rows.
//
// Rows may be shorter than Columns; Cell pads the difference with "".
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// ColumnIndex returns the position of an exactly-named column.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	for i, c := range d.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// HasColumn reports whether a column named exactly name exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.ColumnIndex(name)
	return ok
}

// Cell returns the value at (row, col), or "" when the row is short.
func (d *Dataset) Cell(row, col int) string {
	r := d.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// FromRecords builds a Dataset from raw sheet rows using the given header row.
//
// Header cells are kept verbatim (exact names matter for key lookup), but
// empty header cells are named "Unnamed: <i>" and repeated names receive ".1",
// ".2", ... suffixes in order of appearance. Rows above the header are ignored,
// fully blank data rows are dropped, and every kept row is padded to the
// widest of the header and the data.
func FromRecords(records [][]string, headerRow int) (*Dataset, error) {
	if headerRow < 0 {
		return nil, fmt.Errorf("header row must be >= 0, got %d", headerRow)
	}
	if headerRow >= len(records) {
		return nil, fmt.Errorf("header row %d out of range (%d rows)", headerRow, len(records))
	}

	raw := records[headerRow]
	width := len(raw)
	for _, r := range records[headerRow+1:] {
		if n := lastNonBlank(r) + 1; n > width {
			width = n
		}
	}
	if width == 0 {
		return nil, fmt.Errorf("header row %d is empty", headerRow)
	}

	d := &Dataset{Columns: headerNames(raw, width)}
	for _, r := range records[headerRow+1:] {
		if lastNonBlank(r) < 0 {
			continue
		}
		row := make([]string, width)
		copy(row, r)
		d.Rows = append(d.Rows, row)
	}
	return d, nil
}

func headerNames(raw []string, width int) []string {
	names := make([]string, width)
	used := make(map[string]bool, width)
	dups := make(map[string]int)
	for i := 0; i < width; i++ {
		var h string
		if i < len(raw) {
			h = raw[i]
		}
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if used[h] {
			base := h
			for used[h] {
				dups[base]++
				h = fmt.Sprintf("%s.%d", base, dups[base])
			}
		}
		used[h] = true
		names[i] = h
	}
	return names
}

func lastNonBlank(r []string) int {
	for i := len(r) - 1; i >= 0; i-- {
		if strings.TrimSpace(r[i]) != "" {
			return i
		}
	}
	return -1
}
