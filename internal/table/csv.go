package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes x as comma-separated text: a header row starting with the
// key name, then one record per row with the key first.
func WriteCSV(w io.Writer, x *Indexed) error {
	cw := csv.NewWriter(w)

	rec := make([]string, 0, len(x.Columns)+1)
	rec = append(rec, x.KeyName)
	rec = append(rec, x.Columns...)
	if err := cw.Write(rec); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range x.Rows {
		rec = rec[:0]
		rec = append(rec, x.Keys[i])
		rec = append(rec, row...)
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// EncodeCSV is WriteCSV into a fresh buffer.
func EncodeCSV(x *Indexed) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, x); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
