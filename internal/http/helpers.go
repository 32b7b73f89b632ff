package http

import (
	"html/template"
	"time"

	"vendas/internal/charts"
	"vendas/internal/core"
	"vendas/internal/dashboard"
)

var templateFuncs = template.FuncMap{
	"brl": core.FormatBRL,
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("02/01/2006 15:04:05")
	},
}

type selectControl struct {
	Label    string
	Name     string
	Options  []string
	Selected string
}

type chartPanel struct {
	Kind      charts.Kind
	Title     string
	URL       string
	Available bool
}

// page is the template model: the view plus everything derived from it for
// the markup.
type page struct {
	dashboard.View
	Query         string
	Selects       []selectControl
	MonthFrom     selectControl
	MonthTo       selectControl
	Charts        []chartPanel
	TimelineChart chartPanel
	ExportURL     string
}

var selectLabels = map[core.Field]struct{ label, param string }{
	core.FieldRegion:      {"🌎 Escolha a Regional:", dashboard.ParamRegion},
	core.FieldCity:        {"🏙️ Escolha a Cidade:", dashboard.ParamCity},
	core.FieldProduct:     {"📦 Escolha o Produto:", dashboard.ParamProduct},
	core.FieldSalesperson: {"🧑‍💼 Escolha o Vendedor:", dashboard.ParamSalesperson},
}

func newPage(v dashboard.View) page {
	p := page{
		View:  v,
		Query: dashboard.EncodeSelection(v.Selection).Encode(),
	}
	suffix := ""
	if p.Query != "" {
		suffix = "?" + p.Query
	}
	p.ExportURL = "/export.csv" + suffix

	for _, f := range core.Fields {
		l := selectLabels[f]
		p.Selects = append(p.Selects, selectControl{
			Label:    l.label,
			Name:     l.param,
			Options:  v.Options.For(f),
			Selected: v.Selection.Get(f),
		})
	}
	p.MonthFrom = selectControl{Label: "📆 Mês Inicial:", Name: dashboard.ParamMonthFrom, Options: v.Options.Months, Selected: v.Selection.MonthFrom}
	p.MonthTo = selectControl{Label: "📆 Mês Final:", Name: dashboard.ParamMonthTo, Options: v.Options.Months, Selected: v.Selection.MonthTo}

	panel := func(k charts.Kind, available bool) chartPanel {
		return chartPanel{Kind: k, Title: k.Title(), URL: "/charts/" + string(k) + ".svg" + suffix, Available: available}
	}
	p.Charts = []chartPanel{
		panel(charts.KindProduct, len(v.ByProduct) > 0),
		panel(charts.KindSalesperson, len(v.BySalesperson) > 0),
		panel(charts.KindRegion, hasShare(v.ByRegion)),
	}
	p.TimelineChart = panel(charts.KindTimeline, v.HasTimeline())
	return p
}

// PageURL is the address of the full page for this selection.
func (p page) PageURL() string {
	if p.Query == "" {
		return "/"
	}
	return "/?" + p.Query
}

func hasShare(buckets []core.Bucket) bool {
	for _, b := range buckets {
		if b.Share > 0 {
			return true
		}
	}
	return false
}

type apiSelection struct {
	Region      string `json:"regional"`
	City        string `json:"cidade"`
	Product     string `json:"produto"`
	Salesperson string `json:"vendedor"`
	MonthFrom   string `json:"mes_inicial"`
	MonthTo     string `json:"mes_final"`
}

type apiOptions struct {
	Regions     []string `json:"regionais"`
	Cities      []string `json:"cidades"`
	Products    []string `json:"produtos"`
	Salespeople []string `json:"vendedores"`
	Months      []string `json:"meses"`
}

type apiBucket struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
	Share  float64 `json:"share,omitempty"`
}

type apiPoint struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type apiView struct {
	Selection     apiSelection `json:"selection"`
	Options       apiOptions   `json:"options"`
	Rows          int          `json:"rows"`
	Total         float64      `json:"total"`
	ByProduct     []apiBucket  `json:"by_product"`
	BySalesperson []apiBucket  `json:"by_salesperson"`
	ByRegion      []apiBucket  `json:"by_region"`
	Timeline      []apiPoint   `json:"timeline"`
	Errors        []string     `json:"errors,omitempty"`
	Warnings      []string     `json:"warnings,omitempty"`
	Source        string       `json:"source,omitempty"`
	FetchedAt     *time.Time   `json:"fetched_at,omitempty"`
	Dropped       int          `json:"dropped_rows"`
}

func newAPIView(v dashboard.View) apiView {
	buckets := func(in []core.Bucket) []apiBucket {
		out := make([]apiBucket, len(in))
		for i, b := range in {
			out[i] = apiBucket{Label: b.Label, Amount: b.Amount, Share: b.Share}
		}
		return out
	}
	out := apiView{
		Selection: apiSelection{
			Region:      v.Selection.Region,
			City:        v.Selection.City,
			Product:     v.Selection.Product,
			Salesperson: v.Selection.Salesperson,
			MonthFrom:   v.Selection.MonthFrom,
			MonthTo:     v.Selection.MonthTo,
		},
		Options: apiOptions{
			Regions:     v.Options.Regions,
			Cities:      v.Options.Cities,
			Products:    v.Options.Products,
			Salespeople: v.Options.Salespeople,
			Months:      v.Options.Months,
		},
		Rows:          v.Count(),
		Total:         v.Total,
		ByProduct:     buckets(v.ByProduct),
		BySalesperson: buckets(v.BySalesperson),
		ByRegion:      buckets(v.ByRegion),
		Timeline:      make([]apiPoint, len(v.Timeline)),
		Errors:        v.Errors,
		Warnings:      v.Warnings,
		Source:        v.Source,
		Dropped:       v.Dropped,
	}
	for i, pt := range v.Timeline {
		out.Timeline[i] = apiPoint{Date: pt.Date.Format("2006-01-02"), Amount: pt.Amount}
	}
	if !v.FetchedAt.IsZero() {
		t := v.FetchedAt
		out.FetchedAt = &t
	}
	return out
}
