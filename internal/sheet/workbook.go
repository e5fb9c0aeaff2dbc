// Package sheet opens spreadsheet exports held in memory and resolves which
// sheet/header layout a given export uses.
//
// Two container formats are understood:
//   - Office Open XML workbooks (.xlsx/.xlsm), read with excelize.
//   - HTML table exports (often saved with an .xls extension by reporting
//     tools), read with goquery. Each <table> is one sheet.
//
// Legacy binary .xls (BIFF/OLE2) files are detected and rejected with a clear
// error rather than misparsed.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrSheetNotFound is returned by Workbook.Rows for a sheet name the workbook
// does not contain.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrUnsupportedFormat is returned by Open when the bytes are not a workbook
// format this package can read.
var ErrUnsupportedFormat = errors.New("unsupported workbook format")

// Workbook is a read-only view of a spreadsheet file.
type Workbook interface {
	// SheetNames lists sheets in workbook order.
	SheetNames() []string

	// Rows returns the cell values of every row in the named sheet. Trailing
	// empty cells in a row may be omitted. Unknown names yield ErrSheetNotFound.
	Rows(name string) ([][]string, error)

	Close() error
}

var (
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Open detects the container format of data and returns a Workbook for it.
func Open(data []byte) (Workbook, error) {
	switch {
	case len(data) == 0:
		return nil, fmt.Errorf("%w: empty file", ErrUnsupportedFormat)
	case bytes.HasPrefix(data, zipMagic):
		return openXLSX(data)
	case bytes.HasPrefix(data, ole2Magic):
		return nil, fmt.Errorf("%w: legacy binary .xls; re-export as .xlsx", ErrUnsupportedFormat)
	case looksLikeHTML(data):
		return openHTML(data)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func looksLikeHTML(data []byte) bool {
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	head = bytes.ToLower(head)
	return bytes.Contains(head, []byte("<table")) ||
		bytes.Contains(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<!doctype html"))
}
