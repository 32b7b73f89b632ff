// Package charts draws the dashboard charts as SVG.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"vendas/internal/core"
	"vendas/internal/dashboard"
)

var (
	ErrNoData       = errors.New("no data to chart")
	ErrUnknownChart = errors.New("unknown chart")
)

// Kind identifies one of the dashboard charts. Values double as URL slugs.
type Kind string

const (
	KindProduct     Kind = "produto"
	KindSalesperson Kind = "vendedor"
	KindRegion      Kind = "regional"
	KindTimeline    Kind = "evolucao"
)

// Kinds lists the charts in page order.
var Kinds = []Kind{KindProduct, KindSalesperson, KindRegion, KindTimeline}

// ParseKind validates a slug.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChart, s)
}

// Title is the heading shown above the chart.
func (k Kind) Title() string {
	switch k {
	case KindProduct:
		return "📊 Vendas por Produto"
	case KindSalesperson:
		return "📊 Vendas por Vendedor"
	case KindRegion:
		return "📈 Vendas por Regional"
	case KindTimeline:
		return "📈 Evolução das Vendas"
	}
	return string(k)
}

const (
	width  = 640
	height = 360
)

var palette = []drawing.Color{
	drawing.ColorFromHex("636efa"),
	drawing.ColorFromHex("ef553b"),
	drawing.ColorFromHex("00cc96"),
	drawing.ColorFromHex("ab63fa"),
	drawing.ColorFromHex("ffa15a"),
	drawing.ColorFromHex("19d3f3"),
	drawing.ColorFromHex("ff6692"),
	drawing.ColorFromHex("b6e880"),
	drawing.ColorFromHex("ff97ff"),
	drawing.ColorFromHex("fecb52"),
}

func colorAt(i int) drawing.Color { return palette[i%len(palette)] }

// Render draws chart k of v to w.
func Render(k Kind, v dashboard.View, w io.Writer) error {
	switch k {
	case KindProduct:
		return Bars("Vendas por Produto", v.ByProduct, w)
	case KindSalesperson:
		return Bars("Vendas por Vendedor", v.BySalesperson, w)
	case KindRegion:
		return Pie("Distribuição de Vendas por Regional", v.ByRegion, w)
	case KindTimeline:
		return Timeline("Evolução das Vendas", v.Timeline, w)
	}
	return fmt.Errorf("%w: %q", ErrUnknownChart, string(k))
}

// Bars draws one colored bar per bucket.
func Bars(title string, buckets []core.Bucket, w io.Writer) error {
	if len(buckets) == 0 {
		return ErrNoData
	}
	bars := make([]chart.Value, len(buckets))
	lo, hi := 0.0, 0.0
	for i, b := range buckets {
		col := colorAt(i)
		bars[i] = chart.Value{
			Label: b.Label,
			Value: b.Amount,
			Style: chart.Style{FillColor: col, StrokeColor: col},
		}
		lo = math.Min(lo, b.Amount)
		hi = math.Max(hi, b.Amount)
	}
	if hi-lo < 1 {
		hi = lo + 1
	}

	bc := chart.BarChart{
		Title:      title,
		Width:      width,
		Height:     height,
		BarWidth:   barWidth(len(bars)),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Range:          valueRange(lo, hi),
			ValueFormatter: brlFormatter,
		},
		Bars: bars,
	}
	return bc.Render(chart.SVG, w)
}

func barWidth(n int) int {
	bw := (width - 120) / (n * 2)
	if bw > 80 {
		bw = 80
	}
	if bw < 8 {
		bw = 8
	}
	return bw
}

// Pie draws region shares. Buckets without a positive amount cannot be
// drawn as slices and are left out.
func Pie(title string, buckets []core.Bucket, w io.Writer) error {
	values := make([]chart.Value, 0, len(buckets))
	for i, b := range buckets {
		if b.Amount <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%.1f%%)", b.Label, b.Share),
			Value: b.Amount,
			Style: chart.Style{FillColor: colorAt(i)},
		})
	}
	if len(values) == 0 {
		return ErrNoData
	}
	pc := chart.PieChart{
		Title:  title,
		Width:  width,
		Height: height,
		Values: values,
	}
	return pc.Render(chart.SVG, w)
}

// Timeline draws amounts over time as a line. A single point is padded to a
// flat one-day segment since a time axis needs two distinct values.
func Timeline(title string, points []core.Point, w io.Writer) error {
	if len(points) == 0 {
		return ErrNoData
	}
	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Date
		ys[i] = p.Amount
	}
	if len(points) == 1 {
		xs = append(xs, xs[0].Add(24*time.Hour))
		ys = append(ys, ys[0])
	}

	lo, hi := ys[0], ys[0]
	for _, y := range ys {
		lo = math.Min(lo, y)
		hi = math.Max(hi, y)
	}
	lo = math.Min(lo, 0)
	hi = math.Max(hi, 0)
	if hi-lo < 1 {
		hi = lo + 1
	}

	col := colorAt(0)
	ch := chart.Chart{
		Title:      title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("02/01/2006"),
		},
		YAxis: chart.YAxis{
			Range:          valueRange(lo, hi),
			ValueFormatter: brlFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Valor",
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: col, StrokeWidth: 2, DotColor: col, DotWidth: 3},
			},
		},
	}
	return ch.Render(chart.SVG, w)
}

// valueRange pads [lo, hi] by a tenth of its span on top.
func valueRange(lo, hi float64) *chart.ContinuousRange {
	return &chart.ContinuousRange{Min: lo, Max: hi + (hi-lo)*0.1}
}

func brlFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return core.FormatBRL(f)
	}
	return fmt.Sprint(v)
}
