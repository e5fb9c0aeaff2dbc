package sheet

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/htmlindex"
)

// htmlWorkbook holds tables extracted from an HTML export, one per sheet.
type htmlWorkbook struct {
	names  []string
	sheets map[string][][]string
}

var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?([A-Za-z0-9_:.\-]+)`)

// decodeHTML converts data to UTF-8 when the document declares another
// charset in a <meta> tag (windows-1252 and iso-8859-x are common in
// reporting-tool exports). Unknown labels are left as-is.
func decodeHTML(data []byte) ([]byte, error) {
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	m := metaCharsetRe.FindSubmatch(head)
	if m == nil {
		return data, nil
	}
	enc, err := htmlindex.Get(string(m[1]))
	if err != nil {
		return data, nil
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return data, nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", m[1], err)
	}
	return out, nil
}

func openHTML(data []byte) (*htmlWorkbook, error) {
	utf8Data, err := decodeHTML(data)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8Data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	wb := &htmlWorkbook{sheets: make(map[string][][]string)}
	doc.Find("table").Each(func(i int, tbl *goquery.Selection) {
		name := strings.TrimSpace(tbl.ChildrenFiltered("caption").First().Text())
		if name == "" && i == 0 {
			name = title
		}
		if name == "" {
			name = "Sheet" + strconv.Itoa(i+1)
		}
		if _, dup := wb.sheets[name]; dup {
			return
		}
		wb.names = append(wb.names, name)
		wb.sheets[name] = tableRows(tbl)
	})
	if len(wb.names) == 0 {
		return nil, fmt.Errorf("%w: html document has no <table>", ErrUnsupportedFormat)
	}
	return wb, nil
}

// maxColspan is the largest colspan honored; browsers clamp to the same value.
const maxColspan = 1000

// tableRows flattens a <table> into text rows. A cell with colspan=n is
// followed by n-1 empty cells so later columns keep their positions; n is
// clamped to maxColspan.
func tableRows(tbl *goquery.Selection) [][]string {
	var rows [][]string
	tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, strings.TrimSpace(cell.Text()))
			if span, ok := cell.Attr("colspan"); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(span)); err == nil {
					n = min(n, maxColspan)
					for j := 1; j < n; j++ {
						row = append(row, "")
					}
				}
			}
		})
		rows = append(rows, row)
	})
	return rows
}

func (w *htmlWorkbook) SheetNames() []string { return append([]string(nil), w.names...) }

func (w *htmlWorkbook) Rows(name string) ([][]string, error) {
	rows, ok := w.sheets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	return rows, nil
}

func (w *htmlWorkbook) Close() error { return nil }
