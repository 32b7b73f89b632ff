package core

import (
	"slices"
	"strings"
)

// Sentinels meaning "no constraint" for a categorical filter. Regions and
// cities are feminine in Portuguese, products and salespeople masculine.
const (
	AllFeminine  = "Todas"
	AllMasculine = "Todos"
	AllEnglish   = "All"
)

// Field names a categorical column of a Record.
type Field string

const (
	FieldRegion      Field = "region"
	FieldCity        Field = "city"
	FieldProduct     Field = "product"
	FieldSalesperson Field = "salesperson"
)

// Fields lists the categorical filters in display order.
var Fields = []Field{FieldRegion, FieldCity, FieldProduct, FieldSalesperson}

// Sentinel returns the "all" label shown for f.
func (f Field) Sentinel() string {
	switch f {
	case FieldRegion, FieldCity:
		return AllFeminine
	default:
		return AllMasculine
	}
}

// Column returns the source column backing f.
func (f Field) Column() string {
	switch f {
	case FieldRegion:
		return ColRegion
	case FieldCity:
		return ColCity
	case FieldProduct:
		return ColProduct
	case FieldSalesperson:
		return ColSalesperson
	}
	return ""
}

// Value returns r's value for f.
func (r Record) Value(f Field) string {
	switch f {
	case FieldRegion:
		return r.Region
	case FieldCity:
		return r.City
	case FieldProduct:
		return r.Product
	case FieldSalesperson:
		return r.Salesperson
	}
	return ""
}

// Selection is the full set of filter values for one render.
// Month bounds are YYYY-MM keys; an empty bound is open.
type Selection struct {
	Region      string
	City        string
	Product     string
	Salesperson string
	MonthFrom   string
	MonthTo     string
}

// Get returns the selected value for f.
func (s Selection) Get(f Field) string {
	switch f {
	case FieldRegion:
		return s.Region
	case FieldCity:
		return s.City
	case FieldProduct:
		return s.Product
	case FieldSalesperson:
		return s.Salesperson
	}
	return ""
}

// Constrained reports whether f narrows the result.
func (s Selection) Constrained(f Field) bool {
	return !IsSentinel(s.Get(f))
}

// Inverted reports a range whose start is after its end.
func (s Selection) Inverted() bool {
	return s.MonthFrom != "" && s.MonthTo != "" && s.MonthFrom > s.MonthTo
}

// Key is a stable cache key for the selection.
func (s Selection) Key() string {
	return strings.Join([]string{s.Region, s.City, s.Product, s.Salesperson, s.MonthFrom, s.MonthTo}, "\x1f")
}

// IsSentinel reports whether v means "no constraint".
func IsSentinel(v string) bool {
	switch v {
	case "", AllFeminine, AllMasculine, AllEnglish:
		return true
	}
	return false
}

// Match reports whether r satisfies every predicate of s.
func (s Selection) Match(r Record) bool {
	for _, f := range Fields {
		if s.Constrained(f) && r.Value(f) != s.Get(f) {
			return false
		}
	}
	if s.MonthFrom != "" && r.MonthKey < s.MonthFrom {
		return false
	}
	if s.MonthTo != "" && r.MonthKey > s.MonthTo {
		return false
	}
	return true
}

// Apply returns the records matching s, in input order. The input is not
// modified and the result never aliases it.
func Apply(records []Record, s Selection) []Record {
	out := make([]Record, 0, len(records))
	if s.Inverted() {
		return out
	}
	for _, r := range records {
		if s.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Distinct returns the values of f in order of first appearance.
func Distinct(records []Record, f Field) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range records {
		v := r.Value(f)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Months returns the distinct month keys sorted ascending.
func Months(records []Record) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.MonthKey]; ok {
			continue
		}
		seen[r.MonthKey] = struct{}{}
		out = append(out, r.MonthKey)
	}
	slices.Sort(out)
	return out
}
