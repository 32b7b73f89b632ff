// Package dashboard builds the presentation model of the sales dashboard.
//
// Render is a pure function of a loaded dataset and the user's selection.
// Every control change re-runs it from scratch; nothing is retained between
// renders.
package dashboard

import (
	"errors"
	"time"

	"vendas/internal/core"
)

// Title is shown at the top of the page.
const Title = "📊 Dashboard de Vendas"

// User-facing messages.
const (
	WarnNoData       = "⚠️ Nenhum dado disponível para o período selecionado!"
	ErrMsgMissingCol = "❌ Erro: A coluna 'Data' não foi encontrada no dataset!"
	ErrMsgFetch      = "❌ Erro ao carregar os dados de vendas. Tente novamente em instantes."
)

// Options are the values offered by the selectors.
type Options struct {
	Regions     []string
	Cities      []string
	Products    []string
	Salespeople []string
	Months      []string
}

// For returns the options of a categorical field.
func (o Options) For(f core.Field) []string {
	switch f {
	case core.FieldRegion:
		return o.Regions
	case core.FieldCity:
		return o.Cities
	case core.FieldProduct:
		return o.Products
	case core.FieldSalesperson:
		return o.Salespeople
	}
	return nil
}

// View is everything the page needs for one render.
type View struct {
	Title     string
	Selection core.Selection
	Options   Options

	Columns []string
	Rows    [][]string
	Records []core.Record

	ByProduct     []core.Bucket
	BySalesperson []core.Bucket
	ByRegion      []core.Bucket
	Timeline      []core.Point
	Total         float64

	Errors   []string
	Warnings []string

	Source    string
	FetchedAt time.Time
	Dropped   int
}

// Count is the number of filtered rows.
func (v View) Count() int { return len(v.Records) }

// Empty reports whether the filtered set has no rows.
func (v View) Empty() bool { return len(v.Records) == 0 }

// HasTimeline reports whether the evolution chart is drawn. It is replaced by
// the empty-result warning otherwise.
func (v View) HasTimeline() bool { return len(v.Records) > 0 }

// Failed reports whether an error prevents showing data.
func (v View) Failed() bool { return len(v.Errors) > 0 }

// Unavailable reports a view built without any loaded dataset.
func (v View) Unavailable() bool { return v.Failed() && v.FetchedAt.IsZero() }

// TotalBRL is Total formatted as reais.
func (v View) TotalBRL() string { return core.FormatBRL(v.Total) }

// Render computes the view of ds under sel.
//
// Selector options always come from the unfiltered dataset. Unset month
// bounds default to the earliest and latest months present, so the initial
// render shows the whole table.
func Render(ds core.Dataset, sel core.Selection) View {
	v := View{
		Title:     Title,
		Columns:   append([]string(nil), ds.Columns...),
		Source:    ds.Source,
		FetchedAt: ds.FetchedAt,
		Dropped:   ds.Dropped,
	}

	months := core.Months(ds.Records)
	v.Options = Options{
		Regions:     withSentinel(core.FieldRegion, core.Distinct(ds.Records, core.FieldRegion)),
		Cities:      withSentinel(core.FieldCity, core.Distinct(ds.Records, core.FieldCity)),
		Products:    withSentinel(core.FieldProduct, core.Distinct(ds.Records, core.FieldProduct)),
		Salespeople: withSentinel(core.FieldSalesperson, core.Distinct(ds.Records, core.FieldSalesperson)),
		Months:      months,
	}

	v.Selection = normalizeSelection(sel, months)
	v.Records = core.Apply(ds.Records, v.Selection)
	v.Rows = make([][]string, len(v.Records))
	for i, r := range v.Records {
		v.Rows[i] = r.Values
	}

	v.ByProduct = core.SumBy(v.Records, core.FieldProduct)
	v.BySalesperson = core.SumBy(v.Records, core.FieldSalesperson)
	v.ByRegion = core.Shares(v.Records, core.FieldRegion)
	v.Timeline = core.DailyTotals(v.Records)
	v.Total = core.Total(v.Records)

	if v.Empty() {
		v.Warnings = append(v.Warnings, WarnNoData)
	}
	return v
}

// RenderResult renders ds and reports err, the non-fatal error returned with
// it by the loader.
func RenderResult(ds core.Dataset, err error, sel core.Selection) View {
	if err != nil && !errors.Is(err, core.ErrMissingColumn) {
		return Failed(err, sel)
	}
	v := Render(ds, sel)
	if err != nil {
		v.Errors = append(v.Errors, Message(err))
	}
	return v
}

// Failed is the view shown when the dataset could not be loaded. It carries
// no data.
func Failed(err error, sel core.Selection) View {
	v := Render(core.Dataset{}, sel)
	v.Selection = sel
	v.Warnings = nil
	if err != nil {
		v.Errors = append(v.Errors, Message(err))
	}
	return v
}

// Message maps a load error to the text shown to the user.
func Message(err error) string {
	switch {
	case errors.Is(err, core.ErrMissingColumn):
		return ErrMsgMissingCol
	case errors.Is(err, core.ErrFetch):
		return ErrMsgFetch
	}
	return "❌ Erro: " + err.Error()
}

func withSentinel(f core.Field, values []string) []string {
	out := make([]string, 0, len(values)+1)
	out = append(out, f.Sentinel())
	for _, v := range values {
		if v == f.Sentinel() {
			continue
		}
		out = append(out, v)
	}
	return out
}

// normalizeSelection maps every "all" alias to the field's sentinel and
// fills open month bounds with the dataset's range.
func normalizeSelection(sel core.Selection, months []string) core.Selection {
	fix := func(f core.Field, v string) string {
		if core.IsSentinel(v) {
			return f.Sentinel()
		}
		return v
	}
	sel.Region = fix(core.FieldRegion, sel.Region)
	sel.City = fix(core.FieldCity, sel.City)
	sel.Product = fix(core.FieldProduct, sel.Product)
	sel.Salesperson = fix(core.FieldSalesperson, sel.Salesperson)
	if len(months) > 0 {
		if sel.MonthFrom == "" {
			sel.MonthFrom = months[0]
		}
		if sel.MonthTo == "" {
			sel.MonthTo = months[len(months)-1]
		}
	}
	return sel
}
