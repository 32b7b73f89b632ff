// Package core holds the sales domain: the raw feed table, normalized
// records, the selection filter and the aggregations drawn by the dashboard.
package core

import (
	"errors"
	"fmt"
	"time"
)

// Source column names as published in the sales sheet.
const (
	ColDate        = "Data"
	ColRegion      = "Regional"
	ColCity        = "Cidade"
	ColProduct     = "Produto"
	ColSalesperson = "Vendedor"
	ColAmount      = "Valor"

	// Derived columns appended by Normalize.
	ColYear  = "Ano"
	ColMonth = "Mês"
)

type (
	// Table is the raw decoded feed: a header and its rows, all strings.
	Table struct {
		Columns []string
		Rows    [][]string
	}

	// Record is one normalized sales row.
	Record struct {
		Date        time.Time
		Year        int
		MonthKey    string // YYYY-MM
		Region      string
		City        string
		Product     string
		Salesperson string
		Amount      float64
		// Values holds the raw row aligned with Dataset.Columns.
		Values []string
	}

	// Dataset is the normalized table. It is never mutated after Normalize.
	Dataset struct {
		Columns   []string
		Records   []Record
		Dropped   int
		Source    string
		FetchedAt time.Time
	}
)

var (
	ErrFetch         = errors.New("fetch failed")
	ErrMissingColumn = errors.New("missing column")
	ErrEmptyResult   = errors.New("no data for the selected period")
)

// FetchError reports that the feed could not be retrieved or decoded.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }

// MissingColumnError reports a required column absent from the feed header.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q not found in dataset", e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// Len returns the number of normalized records.
func (d Dataset) Len() int { return len(d.Records) }

// Empty reports whether the dataset has no records.
func (d Dataset) Empty() bool { return len(d.Records) == 0 }

// Cell returns the raw value of column in r, or "" when absent.
func (d Dataset) Cell(r Record, column string) string {
	for i, c := range d.Columns {
		if c == column {
			if i < len(r.Values) {
				return r.Values[i]
			}
			return ""
		}
	}
	return ""
}

// Index returns the position of name in the header, or -1.
func (t Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether name is in the header.
func (t Table) HasColumn(name string) bool { return t.Index(name) >= 0 }
