package core

import (
	"errors"
	"regexp"
	"testing"
	"time"
)

func sampleTable() Table {
	return Table{
		Columns: []string{"Data", "Regional", "Cidade", "Produto", "Vendedor", "Valor"},
		Rows: [][]string{
			{"2024-01-05", "North", "Recife", "Notebook", "Ana", "100"},
			{"2024-02-10", "South", "Curitiba", "Mouse", "Bruno", "200"},
			{"invalid", "North", "Recife", "Mouse", "Ana", "50"},
		},
	}
}

func TestNormalizeDropsInvalidDates(t *testing.T) {
	ds, err := Normalize(sampleTable())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ds.Len() != 2 || ds.Dropped != 1 {
		t.Fatalf("expected 2 rows and 1 dropped, got %d/%d", ds.Len(), ds.Dropped)
	}
	if ds.Records[0].MonthKey != "2024-01" || ds.Records[1].MonthKey != "2024-02" {
		t.Fatalf("unexpected month keys: %q %q", ds.Records[0].MonthKey, ds.Records[1].MonthKey)
	}
	last := ds.Columns[len(ds.Columns)-2:]
	if last[0] != ColYear || last[1] != ColMonth {
		t.Fatalf("derived columns not appended: %v", ds.Columns)
	}
}

func TestNormalizeDerivedFields(t *testing.T) {
	tbl := Table{
		Columns: []string{"Data", "Valor"},
		Rows: [][]string{
			{"2023-12-31", "1"},
			{"05/03/2024", "1"},
			{"2024-07-01 10:30:00", "1"},
			{"2025-11-09T08:00:00Z", "1"},
		},
	}
	ds, err := Normalize(tbl)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ds.Len() != len(tbl.Rows) {
		t.Fatalf("expected every row to parse, got %d", ds.Len())
	}
	keyFormat := regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
	for _, r := range ds.Records {
		if !keyFormat.MatchString(r.MonthKey) {
			t.Fatalf("bad month key %q", r.MonthKey)
		}
		if r.Year != r.Date.Year() {
			t.Fatalf("year %d does not match date %v", r.Year, r.Date)
		}
		if r.MonthKey != r.Date.Format("2006-01") {
			t.Fatalf("month key %q does not match date %v", r.MonthKey, r.Date)
		}
	}
	if got := ds.Records[1].Date; !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected day-first parse, got %v", got)
	}
}

func TestNormalizeMissingDateColumn(t *testing.T) {
	ds, err := Normalize(Table{Columns: []string{"Regional", "Valor"}, Rows: [][]string{{"North", "1"}}})
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if !ds.Empty() {
		t.Fatalf("expected empty dataset on missing column")
	}
	if len(ds.Columns) != 2 {
		t.Fatalf("expected source header preserved, got %v", ds.Columns)
	}
}

func TestNormalizeRaggedRowsAndBadAmounts(t *testing.T) {
	ds, err := Normalize(Table{
		Columns: []string{"Data", "Regional", "Valor"},
		Rows: [][]string{
			{"2024-01-01"},
			{"2024-01-02", "East", "n/a"},
		},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("expected rows kept, got %d", ds.Len())
	}
	if ds.Records[0].Region != "" || ds.Records[1].Amount != 0 {
		t.Fatalf("unexpected defaults: %+v", ds.Records)
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"", "invalid", "2024-13-01", "31/02/2024", "01/13/2024", "12/31/2023"} {
		if _, ok := ParseDate(s); ok {
			t.Fatalf("%q should not parse", s)
		}
	}
}

func TestSlashDatesAreDayFirst(t *testing.T) {
	ds, err := Normalize(Table{
		Columns: []string{"Data", "Valor"},
		Rows: [][]string{
			{"01/02/2024", "1"},
			{"13/01/2024", "2"},
			{"01/13/2024", "3"},
		},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ds.Len() != 2 || ds.Dropped != 1 {
		t.Fatalf("expected the month-first row dropped, got %d kept %d dropped", ds.Len(), ds.Dropped)
	}
	if ds.Records[0].MonthKey != "2024-02" || ds.Records[1].MonthKey != "2024-01" {
		t.Fatalf("month keys = %q %q", ds.Records[0].MonthKey, ds.Records[1].MonthKey)
	}
}
