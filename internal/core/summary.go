package core

import (
	"slices"
	"time"
)

// Bucket is an amount aggregated under a label.
type Bucket struct {
	Label  string
	Amount float64
	// Share is Amount as a percentage of the positive total (pie views).
	Share float64
}

// Point is one time-ordered amount.
type Point struct {
	Date   time.Time
	Amount float64
}

// SumBy sums Amount per value of f, in order of first appearance.
func SumBy(records []Record, f Field) []Bucket {
	idx := make(map[string]int)
	out := make([]Bucket, 0)
	for _, r := range records {
		label := r.Value(f)
		i, ok := idx[label]
		if !ok {
			i = len(out)
			idx[label] = i
			out = append(out, Bucket{Label: label})
		}
		out[i].Amount += r.Amount
	}
	return out
}

// Shares is SumBy with Share filled in. Buckets whose sum is not positive
// cannot be drawn as a slice and get a zero share.
func Shares(records []Record, f Field) []Bucket {
	out := SumBy(records, f)
	var total float64
	for _, b := range out {
		if b.Amount > 0 {
			total += b.Amount
		}
	}
	if total == 0 {
		return out
	}
	for i := range out {
		if out[i].Amount > 0 {
			out[i].Share = out[i].Amount / total * 100
		}
	}
	return out
}

// DailyTotals sums Amount per calendar day, ordered by date.
func DailyTotals(records []Record) []Point {
	byDay := make(map[time.Time]float64)
	for _, r := range records {
		byDay[r.Date] += r.Amount
	}
	out := make([]Point, 0, len(byDay))
	for d, v := range byDay {
		out = append(out, Point{Date: d, Amount: v})
	}
	slices.SortFunc(out, func(a, b Point) int { return a.Date.Compare(b.Date) })
	return out
}

// Total sums Amount over records.
func Total(records []Record) float64 {
	var t float64
	for _, r := range records {
		t += r.Amount
	}
	return t
}
