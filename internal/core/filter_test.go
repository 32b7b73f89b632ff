package core

import (
	"reflect"
	"testing"
)

func normalized(t *testing.T) Dataset {
	t.Helper()
	ds, err := Normalize(sampleTable())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return ds
}

func TestApplyScenarioRegionAndRange(t *testing.T) {
	ds := normalized(t)
	got := Apply(ds.Records, Selection{Region: "North", MonthFrom: "2024-01", MonthTo: "2024-02"})
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].Region != "North" || got[0].MonthKey != "2024-01" || got[0].Amount != 100 {
		t.Fatalf("unexpected row: %+v", got[0])
	}
}

func TestApplyInvertedRangeIsEmpty(t *testing.T) {
	ds := normalized(t)
	sels := []Selection{
		{MonthFrom: "2024-03", MonthTo: "2024-01"},
		{Region: "North", MonthFrom: "2024-03", MonthTo: "2024-01"},
		{Region: AllFeminine, Product: AllMasculine, MonthFrom: "2024-02", MonthTo: "2024-01"},
	}
	for _, s := range sels {
		if got := Apply(ds.Records, s); len(got) != 0 {
			t.Fatalf("inverted range %+v returned %d rows", s, len(got))
		}
	}
}

func TestApplyAllSentinelsReturnsEverything(t *testing.T) {
	ds := normalized(t)
	months := Months(ds.Records)
	s := Selection{
		Region:      AllFeminine,
		City:        AllFeminine,
		Product:     AllMasculine,
		Salesperson: AllMasculine,
		MonthFrom:   months[0],
		MonthTo:     months[len(months)-1],
	}
	got := Apply(ds.Records, s)
	if !reflect.DeepEqual(got, ds.Records) {
		t.Fatalf("expected full table, got %d of %d", len(got), ds.Len())
	}
}

func TestApplySubsetAndIdempotent(t *testing.T) {
	ds := normalized(t)
	sels := []Selection{
		{},
		{Region: "North"},
		{Region: "north"},
		{City: "Curitiba", Salesperson: "Bruno"},
		{Product: "Mouse", MonthFrom: "2024-02"},
		{MonthTo: "2024-01"},
		{Region: "Nowhere"},
	}
	for _, s := range sels {
		once := Apply(ds.Records, s)
		if len(once) > ds.Len() {
			t.Fatalf("%+v: output larger than input", s)
		}
		for _, r := range once {
			if !s.Match(r) {
				t.Fatalf("%+v: row %+v does not match", s, r)
			}
		}
		twice := Apply(once, s)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("%+v: apply not idempotent", s)
		}
	}
	if got := Apply(ds.Records, Selection{Region: "north"}); len(got) != 0 {
		t.Fatalf("match must be case-sensitive")
	}
}

func TestApplyDoesNotAliasInput(t *testing.T) {
	ds := normalized(t)
	got := Apply(ds.Records, Selection{})
	got[0].Region = "changed"
	if ds.Records[0].Region == "changed" {
		t.Fatalf("Apply result aliases input")
	}
}

func TestDistinctAndMonths(t *testing.T) {
	recs := []Record{
		{Region: "South", MonthKey: "2024-03"},
		{Region: "North", MonthKey: "2024-01"},
		{Region: "South", MonthKey: "2024-01"},
	}
	if got := Distinct(recs, FieldRegion); !reflect.DeepEqual(got, []string{"South", "North"}) {
		t.Fatalf("Distinct = %v", got)
	}
	if got := Months(recs); !reflect.DeepEqual(got, []string{"2024-01", "2024-03"}) {
		t.Fatalf("Months = %v", got)
	}
}

func TestSentinels(t *testing.T) {
	if FieldRegion.Sentinel() != "Todas" || FieldProduct.Sentinel() != "Todos" {
		t.Fatalf("unexpected sentinels")
	}
	for _, v := range []string{"", "Todas", "Todos", "All"} {
		if !IsSentinel(v) {
			t.Fatalf("%q should be a sentinel", v)
		}
	}
	if IsSentinel("North") {
		t.Fatalf("North is not a sentinel")
	}
}
