// Package merge runs one pivot/report merge: fetch both workbooks from the
// object store, resolve their sheet layouts, left-join the report onto the
// pivot by UID, blank placeholder cells and upload the result as CSV.
//
// Every step is timed through the metrics facade; the run is logged once with
// its Summary by Handler.
package merge

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sheetmerge/internal/config"
	"sheetmerge/internal/metrics"
	"sheetmerge/internal/objectstore"
	"sheetmerge/internal/sheet"
	"sheetmerge/internal/table"
)

// Column suffixes applied to each side after indexing.
const (
	PivotSuffix  = "_pivot"
	ReportSuffix = "_report"
)

// ContentType of the uploaded object.
const ContentType = "text/csv"

// Summary describes a finished (or partially finished) run.
type Summary struct {
	RunID string

	PivotLayout  sheet.Layout
	ReportLayout sheet.Layout

	PivotRows   int
	ReportRows  int
	MatchedRows int
	OutputRows  int
	Sanitized   int

	OutputBucket string
	OutputKey    string
	OutputBytes  int

	Duration time.Duration
}

// Fields renders s as zap fields.
func (s Summary) Fields() []zap.Field {
	return []zap.Field{
		zap.String("pivot_sheet", s.PivotLayout.Sheet),
		zap.String("report_sheet", s.ReportLayout.Sheet),
		zap.Int("pivot_rows", s.PivotRows),
		zap.Int("report_rows", s.ReportRows),
		zap.Int("matched_rows", s.MatchedRows),
		zap.Int("output_rows", s.OutputRows),
		zap.Int("sanitized_cells", s.Sanitized),
		zap.String("output", s.OutputBucket+"/"+s.OutputKey),
		zap.Int("output_bytes", s.OutputBytes),
		zap.Duration("duration", s.Duration),
	}
}

// Merger holds the per-process dependencies of a run.
type Merger struct {
	Store  objectstore.Store
	Logger *zap.Logger

	// PivotLayouts and ReportLayouts default to sheet.DefaultPivotLayouts and
	// sheet.DefaultReportLayouts when empty.
	PivotLayouts  []sheet.Layout
	ReportLayouts []sheet.Layout

	now func() time.Time
}

func (m *Merger) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}

func (m *Merger) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

// step times fn and records its outcome.
func (m *Merger) step(name string, fn func() error) error {
	start := m.clock()
	err := fn()
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordStep(name, status, m.clock().Sub(start))
	return err
}

// Run performs the merge described by ev. The returned Summary is filled as
// far as the run got, also on error.
func (m *Merger) Run(ctx context.Context, ev config.Event) (sum Summary, err error) {
	start := m.clock()
	sum = Summary{OutputBucket: ev.OutputBucket, OutputKey: ev.DestinationKey()}
	defer func() { sum.Duration = m.clock().Sub(start) }()

	if err := m.step("validate_event", func() error {
		if err := config.IssuesError(config.ValidateEvent(ev)); err != nil {
			return fmt.Errorf("invalid event: %w", err)
		}
		return nil
	}); err != nil {
		return sum, err
	}

	var pivotRaw, reportRaw []byte
	if err := m.step("fetch", func() error {
		var err error
		if pivotRaw, err = m.Store.Get(ctx, ev.InputBucket, ev.PivotKey); err != nil {
			return fmt.Errorf("fetch pivot: %w", err)
		}
		if reportRaw, err = m.Store.Get(ctx, ev.InputBucket, ev.ReportKey); err != nil {
			return fmt.Errorf("fetch report: %w", err)
		}
		return nil
	}); err != nil {
		return sum, err
	}

	var pivot, report *table.Dataset
	if err := m.step("resolve", func() error {
		var err error
		pivot, sum.PivotLayout, err = m.load(pivotRaw, "pivot", m.PivotLayouts, sheet.DefaultPivotLayouts)
		if err != nil {
			return err
		}
		report, sum.ReportLayout, err = m.load(reportRaw, "report", m.ReportLayouts, sheet.DefaultReportLayouts)
		return err
	}); err != nil {
		return sum, err
	}
	sum.PivotRows, sum.ReportRows = pivot.Len(), report.Len()
	metrics.RecordRows("pivot", sum.PivotRows)
	metrics.RecordRows("report", sum.ReportRows)

	var left, right *table.Indexed
	if err := m.step("index", func() error {
		if err := table.CheckKey(pivot, report); err != nil {
			return err
		}
		var err error
		if left, err = table.SetIndex(pivot, table.KeyColumn, "pivot data"); err != nil {
			return err
		}
		if right, err = table.SetIndex(report, table.KeyColumn, "report data"); err != nil {
			return err
		}
		left.RenameColumns(PivotSuffix)
		right.RenameColumns(ReportSuffix)
		return nil
	}); err != nil {
		return sum, err
	}

	var merged *table.Indexed
	_ = m.step("join", func() error {
		merged = table.LeftJoin(left, right)
		sum.MatchedRows = table.Matched(left, right)
		sum.OutputRows = merged.Len()
		sum.Sanitized = merged.Sanitize(table.PlaceholderValues...)
		return nil
	})
	metrics.RecordRows("matched", sum.MatchedRows)

	var body []byte
	if err := m.step("serialize", func() error {
		var err error
		if body, err = table.EncodeCSV(merged); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		return nil
	}); err != nil {
		return sum, err
	}

	if err := m.step("upload", func() error {
		if err := m.Store.Put(ctx, ev.OutputBucket, sum.OutputKey, body, ContentType); err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		return nil
	}); err != nil {
		return sum, err
	}
	sum.OutputBytes = len(body)
	metrics.RecordRows("output", sum.OutputRows)

	return sum, nil
}

// load opens one workbook and resolves its data sheet.
func (m *Merger) load(raw []byte, side string, layouts []sheet.Layout, defaults func() []sheet.Layout) (*table.Dataset, sheet.Layout, error) {
	wb, err := sheet.Open(raw)
	if err != nil {
		return nil, sheet.Layout{}, fmt.Errorf("open %s workbook: %w", side, err)
	}
	defer wb.Close()

	if len(layouts) == 0 {
		layouts = defaults()
	}
	r := sheet.Resolver{Logger: m.logger().With(zap.String("component", "sheet"))}
	return r.Resolve(wb, side, layouts)
}
