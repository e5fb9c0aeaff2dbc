package sheet

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

type xlsxWorkbook struct {
	f        *excelize.File
	date1904 bool

	// dateStyles caches whether a cell style index carries a date format.
	dateStyles map[int]bool
}

func openXLSX(data []byte) (*xlsxWorkbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	w := &xlsxWorkbook{f: f, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		w.date1904 = *props.Date1904
	}
	return w, nil
}

func (w *xlsxWorkbook) SheetNames() []string { return w.f.GetSheetList() }

// Rows returns stored cell values, not what a number format displays: 1001
// shown as "1,001" or 0.25 shown as "25%" comes back as "1001" and "0.25".
// Date-formatted serials become "2006-01-02" (with " 15:04:05" when the time
// is not midnight) and booleans become "True"/"False".
func (w *xlsxWorkbook) Rows(name string) ([][]string, error) {
	if idx, err := w.f.GetSheetIndex(name); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	raw, err := w.f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	shown, err := w.f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}

	// Only cells whose display differs from the stored value need a closer look.
	for r, row := range raw {
		for c, v := range row {
			if v == "" || r >= len(shown) || c >= len(shown[r]) || shown[r][c] == v {
				continue
			}
			row[c], err = w.typedValue(name, r, c, v, shown[r][c])
			if err != nil {
				return nil, fmt.Errorf("read sheet %q: %w", name, err)
			}
		}
	}
	return raw, nil
}

func (w *xlsxWorkbook) typedValue(sheetName string, r, c int, raw, shown string) (string, error) {
	switch {
	case raw == "1" && shown == "TRUE":
		return "True", nil
	case raw == "0" && shown == "FALSE":
		return "False", nil
	}

	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// ISO 8601 date cells (t="d") store text.
		if t, ok := parseISODate(raw); ok {
			return formatDate(t), nil
		}
		return raw, nil
	}

	ref, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return "", err
	}
	style, err := w.f.GetCellStyle(sheetName, ref)
	if err != nil {
		return "", err
	}
	isDate, ok := w.dateStyles[style]
	if !ok {
		if st, err := w.f.GetStyle(style); err == nil {
			isDate = isDateNumFmt(st.NumFmt, st.CustomNumFmt)
		}
		w.dateStyles[style] = isDate
	}
	if !isDate {
		return raw, nil
	}
	t, err := excelize.ExcelDateToTime(serial, w.date1904)
	if err != nil {
		return raw, nil
	}
	if serial < 1 {
		return t.Format("15:04:05"), nil
	}
	return formatDate(t), nil
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

var isoDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05Z", "2006-01-02"}

func parseISODate(v string) (time.Time, bool) {
	for _, l := range isoDateLayouts {
		if t, err := time.Parse(l, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// isDateNumFmt reports whether a built-in number format id or custom format
// code renders a serial as a date or time.
func isDateNumFmt(id int, custom *string) bool {
	if custom != nil {
		return isDateFormatCode(*custom)
	}
	switch {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode looks for date/time tokens outside quoted literals,
// bracketed sections, and escaped or fill characters.
func isDateFormatCode(code string) bool {
	code = strings.ToLower(code)
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case '"':
			if j := strings.IndexByte(code[i+1:], '"'); j >= 0 {
				i += j + 1
			} else {
				return false
			}
		case '[':
			if j := strings.IndexByte(code[i+1:], ']'); j >= 0 {
				i += j + 1
			} else {
				return false
			}
		case '\\', '_', '*':
			i++
		case 'y', 'm', 'd', 'h', 's':
			return true
		}
	}
	return false
}

func (w *xlsxWorkbook) Close() error { return w.f.Close() }
