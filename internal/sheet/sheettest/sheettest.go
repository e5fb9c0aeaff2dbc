// Package sheettest builds small in-memory workbooks for tests.
package sheettest

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet: a name and its rows, top to bottom.
type Sheet struct {
	Name string
	Rows [][]any

	// NumFmt applies a built-in number format id to cells by reference ("A2").
	NumFmt map[string]int
	// CustomNumFmt applies a custom number format code to cells by reference.
	CustomNumFmt map[string]string
}

// XLSX renders sheets, in order, into an .xlsx file.
func XLSX(sheets ...Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("sheettest: at least one sheet is required")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.Name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return nil, fmt.Errorf("new sheet %q: %w", s.Name, err)
		}

		for r, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return nil, err
			}
			vals := append([]any(nil), row...)
			if err := f.SetSheetRow(s.Name, cell, &vals); err != nil {
				return nil, fmt.Errorf("set row %d of %q: %w", r+1, s.Name, err)
			}
		}

		for cell, id := range s.NumFmt {
			if err := setStyle(f, s.Name, cell, &excelize.Style{NumFmt: id}); err != nil {
				return nil, err
			}
		}
		for cell, code := range s.CustomNumFmt {
			code := code
			if err := setStyle(f, s.Name, cell, &excelize.Style{CustomNumFmt: &code}); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setStyle(f *excelize.File, sheet, cell string, st *excelize.Style) error {
	id, err := f.NewStyle(st)
	if err != nil {
		return fmt.Errorf("style %s!%s: %w", sheet, cell, err)
	}
	if err := f.SetCellStyle(sheet, cell, cell, id); err != nil {
		return fmt.Errorf("style %s!%s: %w", sheet, cell, err)
	}
	return nil
}

// MustXLSX is XLSX for test setup; it panics on error.
func MustXLSX(sheets ...Sheet) []byte {
	b, err := XLSX(sheets...)
	if err != nil {
		panic(err)
	}
	return b
}
