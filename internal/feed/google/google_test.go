package google

import (
	"context"
	"errors"
	"testing"

	"vendas/internal/core"
)

type fakeValues struct {
	values [][]interface{}
	err    error
	rng    string
}

func (f *fakeValues) Get(ctx context.Context, id, rng string) ([][]interface{}, error) {
	f.rng = rng
	return f.values, f.err
}

func TestReadTable(t *testing.T) {
	fv := &fakeValues{values: [][]interface{}{
		{"Data", "Regional", "Valor"},
		{"05/01/2024", "North", 100.5},
		{},
		{"", ""},
		{"06/01/2024", "South"},
	}}
	c := newWithValues(fv, "sheet-id", "")
	tbl, err := c.ReadTable(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if fv.rng != "A:Z" {
		t.Fatalf("default range not applied: %q", fv.rng)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	if tbl.Rows[0][2] != "100.5" || tbl.Rows[1][2] != "" {
		t.Fatalf("unexpected rows: %v", tbl.Rows)
	}
}

func TestReadTableErrors(t *testing.T) {
	cases := []*Client{
		newWithValues(&fakeValues{err: errors.New("403 forbidden")}, "id", "Vendas!A:F"),
		newWithValues(&fakeValues{}, "id", ""),
		{},
	}
	for i, c := range cases {
		_, err := c.ReadTable(context.Background())
		if !errors.Is(err, core.ErrFetch) {
			t.Fatalf("case %d: expected fetch error, got %v", i, err)
		}
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without spreadsheet id")
	}
}
