package probe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sheetmerge/internal/sheet"
	"sheetmerge/internal/sheet/sheettest"
)

func open(t *testing.T, sheets ...sheettest.Sheet) sheet.Workbook {
	t.Helper()
	wb, err := sheet.Open(sheettest.MustXLSX(sheets...))
	require.NoError(t, err)
	t.Cleanup(func() { _ = wb.Close() })
	return wb
}

func TestInspect_ProfilesResolvedSheet(t *testing.T) {
	t.Parallel()

	wb := open(t,
		sheettest.Sheet{Name: "Cover", Rows: [][]any{{"x"}}},
		sheettest.Sheet{Name: "Product Details", Rows: [][]any{
			{"UID", "Price", "Active", "Launched", "Name"},
			{"A1", "10", "yes", "2024-01-31", "Printer"},
			{"A2", "12.5", "no", "2024-02-29", "Printer"},
			{"A1", "", "yes", "2024-03-01", "Scanner"},
		}},
	)

	r := Inspect(wb, "report", sheet.DefaultReportLayouts())
	require.NoError(t, r.Err)
	require.Equal(t, []string{"Cover", "Product Details"}, r.Sheets)
	require.Equal(t, &sheet.Layout{Sheet: "Product Details", HeaderRow: 0}, r.Layout)
	require.Equal(t, 3, r.Rows)
	require.True(t, r.KeyFound)
	require.Equal(t, []string{"A1"}, r.DuplicateKeys)

	byName := map[string]Column{}
	for _, c := range r.Columns {
		byName[c.Name] = c
	}
	require.Equal(t, Column{Name: "UID", Type: "text", NonEmpty: 3, Distinct: 2}, byName["UID"])
	require.Equal(t, "float", byName["Price"].Type)
	require.Equal(t, 2, byName["Price"].NonEmpty)
	require.Equal(t, "boolean", byName["Active"].Type)
	require.Equal(t, "date", byName["Launched"].Type)
	require.Equal(t, "text", byName["Name"].Type)

	out := r.Format()
	require.Contains(t, out, `layout: "Product Details" (header row 0) rows=3`)
	require.Contains(t, out, `key: UID has duplicates ["A1"]`)
}

func TestInspect_NoLayoutAndMissingKey(t *testing.T) {
	t.Parallel()

	r := Inspect(open(t, sheettest.Sheet{Name: "Summary", Rows: [][]any{{"a"}}}), "pivot", sheet.DefaultPivotLayouts())
	require.Nil(t, r.Layout)
	var nl *sheet.NoLayoutError
	require.ErrorAs(t, r.Err, &nl)
	require.Contains(t, r.Format(), "layout: none (no recognized sheet layout found in pivot file")

	r = Inspect(open(t, sheettest.Sheet{Name: "Pivot Table Data", Rows: [][]any{{"Product", "Price"}, {"p", 1}}}), "pivot", sheet.DefaultPivotLayouts())
	require.NoError(t, r.Err)
	require.False(t, r.KeyFound)
	require.Contains(t, r.Format(), "key: UID column missing")
}

func TestInferType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []string
		want string
	}{
		{nil, "text"},
		{[]string{"1", "-2", "30"}, "integer"},
		{[]string{"1", "2.5", "1,234.50"}, "float"},
		{[]string{"TRUE", "false"}, "boolean"},
		{[]string{"2024-01-02", "2024-01-02 10:00:00"}, "date"},
		{[]string{"1", "n/a"}, "text"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, inferType(tc.in), "%q", tc.in)
	}
}

func TestInspect_BlankKeysAreNotDuplicates(t *testing.T) {
	t.Parallel()

	r := Inspect(open(t, sheettest.Sheet{Name: "Pivot Table Data", Rows: [][]any{
		{"UID", "Price"},
		{"1", 10},
		{nil, "subtotal"},
		{nil, "notes"},
	}}), "pivot", sheet.DefaultPivotLayouts())
	require.NoError(t, r.Err)
	require.True(t, r.KeyFound)
	require.Empty(t, r.DuplicateKeys)
	require.Contains(t, r.Format(), "key: UID ok")
}
