package csvfeed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"vendas/internal/core"
)

// ErrNoHeader is returned for an empty document.
var ErrNoHeader = errors.New("csv has no header row")

// Decode reads a CSV document with a header row into a table.
// Short rows are padded to the header width; a row with more fields than the
// header is an error.
func Decode(r io.Reader) (core.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return core.Table{}, ErrNoHeader
		}
		return core.Table{}, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}

	t := core.Table{Columns: header}
	line := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return core.Table{}, fmt.Errorf("read record %d: %w", line, err)
		}
		line++
		if len(record) > len(header) {
			return core.Table{}, fmt.Errorf("read record %d: %d fields, header has %d", line, len(record), len(header))
		}
		if isBlank(record) {
			continue
		}
		row := make([]string, len(header))
		copy(row, record)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Encode writes columns and rows as CSV.
func Encode(w io.Writer, columns []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
