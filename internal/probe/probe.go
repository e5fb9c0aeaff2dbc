// Package probe inspects a workbook the way the merge would read it and
// reports what it finds: the resolved layout, the key column, per-column type
// guesses and uniqueness.
//
// It answers "why did this export fail to merge" without running a merge.
// Inference is best-effort and never fails the probe; only an unreadable
// workbook is an error.
package probe

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"sheetmerge/internal/sheet"
	"sheetmerge/internal/table"
)

// distinctCap bounds the distinct-value set kept per column.
const distinctCap = 10000

// maxDuplicates bounds how many duplicate key values a report lists.
const maxDuplicates = 5

// Column summarizes one column of the resolved dataset.
type Column struct {
	Name     string
	Type     string // integer|float|boolean|date|text
	NonEmpty int
	Distinct int
	Capped   bool
}

// Ratio is Distinct/NonEmpty, or 0 for an empty column.
func (c Column) Ratio() float64 {
	if c.NonEmpty == 0 {
		return 0
	}
	return float64(c.Distinct) / float64(c.NonEmpty)
}

// Report is the result of Inspect.
type Report struct {
	Side   string
	Sheets []string

	// Layout is nil when no candidate matched; Err then holds the reason.
	Layout *sheet.Layout
	Err    error

	Rows    int
	Columns []Column

	KeyFound      bool
	DuplicateKeys []string
}

// Inspect resolves wb against candidates and profiles the resulting dataset.
func Inspect(wb sheet.Workbook, side string, candidates []sheet.Layout) Report {
	r := Report{Side: side, Sheets: wb.SheetNames()}

	ds, l, err := sheet.Resolver{}.Resolve(wb, side, candidates)
	if err != nil {
		r.Err = err
		return r
	}
	r.Layout = &l
	r.Rows = ds.Len()
	r.Columns = profile(ds)

	if ki, ok := ds.ColumnIndex(table.KeyColumn); ok {
		r.KeyFound = true
		r.DuplicateKeys = duplicates(ds, ki)
	}
	return r
}

func profile(ds *table.Dataset) []Column {
	cols := make([]Column, len(ds.Columns))
	for c, name := range ds.Columns {
		col := Column{Name: name}
		seen := make(map[string]struct{})
		values := make([]string, 0, len(ds.Rows))
		for i := range ds.Rows {
			v := strings.TrimSpace(ds.Cell(i, c))
			if v == "" {
				continue
			}
			col.NonEmpty++
			values = append(values, v)
			if col.Capped {
				continue
			}
			seen[v] = struct{}{}
			if len(seen) >= distinctCap {
				col.Capped = true
				seen = nil
			}
		}
		if col.Capped {
			col.Distinct = distinctCap
		} else {
			col.Distinct = len(seen)
		}
		col.Type = inferType(values)
		cols[c] = col
	}
	return cols
}

func duplicates(ds *table.Dataset, ki int) []string {
	count := make(map[string]int, len(ds.Rows))
	var order []string
	for i := range ds.Rows {
		k := ds.Cell(i, ki)
		if table.BlankKey(k) {
			continue
		}
		if count[k] == 1 {
			order = append(order, k)
		}
		count[k]++
	}
	if len(order) > maxDuplicates {
		order = order[:maxDuplicates]
	}
	return order
}

var dateLayouts = []string{"2006-01-02", "01-02-06", "02/01/2006", "01/02/2006", "2006-01-02 15:04:05", time.RFC3339}

// inferType picks the most specific type all values satisfy.
func inferType(values []string) string {
	if len(values) == 0 {
		return "text"
	}
	allInt, allFloat, allBool, allDate := true, true, true, true
	for _, v := range values {
		if allInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64); err != nil {
				allFloat = false
			}
		}
		if allBool {
			switch strings.ToLower(v) {
			case "true", "false", "yes", "no":
			default:
				allBool = false
			}
		}
		if allDate {
			allDate = parsesAsDate(v)
		}
	}
	switch {
	case allInt:
		return "integer"
	case allFloat:
		return "float"
	case allBool:
		return "boolean"
	case allDate:
		return "date"
	default:
		return "text"
	}
}

func parsesAsDate(v string) bool {
	for _, l := range dateLayouts {
		if _, err := time.Parse(l, v); err == nil {
			return true
		}
	}
	return false
}

// Format renders r as a tab-separated text block for terminals.
func (r Report) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s file: sheets=%q\n", r.Side, r.Sheets)
	if r.Layout == nil {
		fmt.Fprintf(&b, "layout: none (%v)", r.Err)
		return b.String()
	}
	fmt.Fprintf(&b, "layout: %s rows=%d\n", r.Layout, r.Rows)

	switch {
	case !r.KeyFound:
		fmt.Fprintf(&b, "key: %s column missing\n", table.KeyColumn)
	case len(r.DuplicateKeys) > 0:
		fmt.Fprintf(&b, "key: %s has duplicates %q\n", table.KeyColumn, r.DuplicateKeys)
	default:
		fmt.Fprintf(&b, "key: %s ok\n", table.KeyColumn)
	}

	cols := append([]Column(nil), r.Columns...)
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Ratio() > cols[j].Ratio() })

	fmt.Fprintf(&b, "%-24s\t%-8s\t%-7s\t%-7s\tratio\tcapped\n", "col", "type", "unique", "rows")
	for _, c := range cols {
		fmt.Fprintf(&b, "%-24s\t%-8s\t%-7d\t%-7d\t%.1f%%\t%t\n", c.Name, c.Type, c.Distinct, c.NonEmpty, c.Ratio()*100, c.Capped)
	}
	return strings.TrimRight(b.String(), "\n")
}
