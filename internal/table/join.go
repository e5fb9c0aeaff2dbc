package table

import (
	"fmt"
	"strings"
)

// KeyColumn is the join column both inputs must carry.
const KeyColumn = "UID"

// Indexed is a Dataset keyed by one of its former columns.
//
// Keys[i] is the key of Rows[i]; the key column no longer appears in Columns.
type Indexed struct {
	KeyName string
	Keys    []string
	Columns []string
	Rows    [][]string
}

// Len returns the number of rows.
func (x *Indexed) Len() int { return len(x.Rows) }

// MissingKeyError reports which inputs lack the key column.
type MissingKeyError struct {
	Key   string
	Sides []string // e.g. "Product in pivot data"
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s column not found in: %s", e.Key, strings.Join(e.Sides, ", "))
}

// DuplicateKeyError reports a key value that appears more than once in one input.
type DuplicateKeyError struct {
	Key   string
	Value string
	Side  string // "pivot data" or "report data"
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate %s %q in %s", e.Key, e.Value, e.Side)
}

// CheckKey verifies that both inputs expose KeyColumn.
//
// The error lists pivot before report, using the wording downstream
// consumers already grep for ("Product in pivot data").
func CheckKey(pivot, report *Dataset) error {
	var sides []string
	if !pivot.HasColumn(KeyColumn) {
		sides = append(sides, "Product in pivot data")
	}
	if !report.HasColumn(KeyColumn) {
		sides = append(sides, "Product in report data")
	}
	if len(sides) > 0 {
		return &MissingKeyError{Key: KeyColumn, Sides: sides}
	}
	return nil
}

// SetIndex removes the key column from d and returns rows keyed by its values.
//
// side names the input in DuplicateKeyError messages. Non-blank keys must be
// unique within the dataset; a repeat makes the join ambiguous and is
// rejected. Rows with a blank key (subtotal or note rows) are kept but never
// take part in a join.
func SetIndex(d *Dataset, key, side string) (*Indexed, error) {
	ki, ok := d.ColumnIndex(key)
	if !ok {
		return nil, fmt.Errorf("%s column not found in %s", key, side)
	}

	cols := make([]string, 0, len(d.Columns)-1)
	cols = append(cols, d.Columns[:ki]...)
	cols = append(cols, d.Columns[ki+1:]...)

	x := &Indexed{
		KeyName: key,
		Keys:    make([]string, 0, len(d.Rows)),
		Columns: cols,
		Rows:    make([][]string, 0, len(d.Rows)),
	}
	seen := make(map[string]struct{}, len(d.Rows))
	for i := range d.Rows {
		k := d.Cell(i, ki)
		if !BlankKey(k) {
			if _, dup := seen[k]; dup {
				return nil, &DuplicateKeyError{Key: key, Value: k, Side: side}
			}
			seen[k] = struct{}{}
		}

		row := make([]string, 0, len(cols))
		for c := range d.Columns {
			if c == ki {
				continue
			}
			row = append(row, d.Cell(i, c))
		}
		x.Keys = append(x.Keys, k)
		x.Rows = append(x.Rows, row)
	}
	return x, nil
}

// BlankKey reports whether k is empty or whitespace only.
func BlankKey(k string) bool { return strings.TrimSpace(k) == "" }

// NormalizeColumnName trims name, turns spaces into underscores and appends suffix.
func NormalizeColumnName(name, suffix string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_") + suffix
}

// RenameColumns applies NormalizeColumnName to every non-key column in place.
func (x *Indexed) RenameColumns(suffix string) {
	for i, c := range x.Columns {
		x.Columns[i] = NormalizeColumnName(c, suffix)
	}
}

// LeftJoin attaches right's columns to every row of left by key.
//
// Row order and column order of left are preserved; right's columns follow
// in right's order. Left rows without a match, and left rows with a blank
// key, get "" for every right column. The result keeps left's key name.
func LeftJoin(left, right *Indexed) *Indexed {
	byKey := keyPositions(right)

	cols := make([]string, 0, len(left.Columns)+len(right.Columns))
	cols = append(cols, left.Columns...)
	cols = append(cols, right.Columns...)

	out := &Indexed{
		KeyName: left.KeyName,
		Keys:    append([]string(nil), left.Keys...),
		Columns: cols,
		Rows:    make([][]string, len(left.Rows)),
	}
	for i, lr := range left.Rows {
		row := make([]string, len(cols))
		copy(row, lr)
		if j, ok := byKey[left.Keys[i]]; ok {
			copy(row[len(left.Columns):], right.Rows[j])
		}
		out.Rows[i] = row
	}
	return out
}

// Matched counts left keys that have a partner in right.
func Matched(left, right *Indexed) int {
	byKey := keyPositions(right)
	n := 0
	for _, k := range left.Keys {
		if _, ok := byKey[k]; ok {
			n++
		}
	}
	return n
}

// keyPositions maps each non-blank key of x to its row.
func keyPositions(x *Indexed) map[string]int {
	m := make(map[string]int, len(x.Keys))
	for i, k := range x.Keys {
		if !BlankKey(k) {
			m[k] = i
		}
	}
	return m
}

// PlaceholderValues are the cell values blanked by Sanitize.
var PlaceholderValues = []string{"na", "-"}

// Sanitize replaces every cell exactly equal to one of values with "".
// Keys are left untouched. It returns the number of cells replaced.
func (x *Indexed) Sanitize(values ...string) int {
	if len(values) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	n := 0
	for _, row := range x.Rows {
		for c, v := range row {
			if _, hit := set[v]; hit {
				row[c] = ""
				n++
			}
		}
	}
	return n
}
