package sheet

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sheetmerge/internal/table"
)

// Layout identifies one known export variant: the sheet that holds the data
// and the zero-based row that holds the column headers.
type Layout struct {
	Sheet     string `koanf:"sheet" json:"sheet"`
	HeaderRow int    `koanf:"header_row" json:"header_row"`
}

func (l Layout) String() string {
	return fmt.Sprintf("%q (header row %d)", l.Sheet, l.HeaderRow)
}

// DefaultPivotLayouts lists the pivot export variants, most common first.
func DefaultPivotLayouts() []Layout {
	return []Layout{
		{Sheet: "Pivot Table Data", HeaderRow: 0},             // EU
		{Sheet: "Product & Pricing Pivot Data", HeaderRow: 0}, // US
	}
}

// DefaultReportLayouts lists the report export variants, most common first.
func DefaultReportLayouts() []Layout {
	return []Layout{
		{Sheet: "EU MFP TCO", HeaderRow: 1},
		{Sheet: "Product Details", HeaderRow: 0},
	}
}

// NoLayoutError means none of the candidate layouts matched a workbook.
type NoLayoutError struct {
	Side  string // "pivot" or "report"
	Tried []Layout
}

func (e *NoLayoutError) Error() string {
	names := make([]string, len(e.Tried))
	for i, l := range e.Tried {
		names[i] = fmt.Sprintf("%q", l.Sheet)
	}
	return fmt.Sprintf("no recognized sheet layout found in %s file (tried %s)", e.Side, strings.Join(names, ", "))
}

// Resolver picks the first candidate layout that a workbook satisfies.
type Resolver struct {
	Logger *zap.Logger
}

// Resolve tries candidates in order and returns the dataset of the first one
// whose sheet exists and whose header row is present and non-empty.
//
// Misses are logged at debug level. Read errors other than a missing sheet are
// returned immediately since a later candidate would hit the same file.
func (r Resolver) Resolve(wb Workbook, side string, candidates []Layout) (*table.Dataset, Layout, error) {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}

	for _, l := range candidates {
		rows, err := wb.Rows(l.Sheet)
		if errors.Is(err, ErrSheetNotFound) {
			log.Debug("layout miss", zap.String("side", side), zap.String("sheet", l.Sheet), zap.String("reason", "sheet absent"))
			continue
		}
		if err != nil {
			return nil, Layout{}, fmt.Errorf("%s file: %w", side, err)
		}

		ds, err := table.FromRecords(rows, l.HeaderRow)
		if err != nil {
			log.Debug("layout miss", zap.String("side", side), zap.String("sheet", l.Sheet), zap.Error(err))
			continue
		}

		log.Debug("layout resolved",
			zap.String("side", side),
			zap.String("sheet", l.Sheet),
			zap.Int("header_row", l.HeaderRow),
			zap.Int("rows", ds.Len()),
			zap.Int("columns", len(ds.Columns)),
		)
		return ds, l, nil
	}

	return nil, Layout{}, &NoLayoutError{Side: side, Tried: candidates}
}
