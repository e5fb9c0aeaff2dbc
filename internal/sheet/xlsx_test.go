package sheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sheetmerge/internal/sheet/sheettest"
)

func TestXLSXWorkbook_RowsIgnoreNumberFormats(t *testing.T) {
	t.Parallel()

	wb := openXLSXFixture(t, sheettest.Sheet{
		Name: "Data",
		Rows: [][]any{
			{"UID", "Share", "Price", "Day", "At", "Active", "Custom", "Units", "Name"},
			{
				1001, 0.25, 1234.5,
				time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 31, 10, 30, 0, 0, time.UTC),
				true, 45322, 7, "Printer",
			},
		},
		NumFmt:       map[string]int{"A2": 3, "B2": 9, "C2": 4},
		CustomNumFmt: map[string]string{"G2": "yyyy-mm-dd", "H2": `0 "units"`},
	})

	rows, err := wb.Rows("Data")
	require.NoError(t, err)
	require.Equal(t, []string{
		"1001", "0.25", "1234.5",
		"2024-01-31", "2024-01-31 10:30:00",
		"True", "2024-01-31", "7", "Printer",
	}, rows[1])
}

func TestIsDateFormatCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want bool
	}{
		{"yyyy-mm-dd", true},
		{"h:mm AM/PM", true},
		{"[$-409]d-mmm-yy;@", true},
		{"#,##0.00", false},
		{`0 "days"`, false},
		{"[Red]0.00", false},
		{`_($* #,##0_)`, false},
		{"General", false},
		{"0.00E+00", false},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, isDateFormatCode(tc.code), tc.code)
	}
}
