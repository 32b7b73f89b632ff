package dashboard

import (
	"net/url"
	"strings"
	"time"

	"vendas/internal/core"
)

// Query parameter names.
const (
	ParamRegion      = "regional"
	ParamCity        = "cidade"
	ParamProduct     = "produto"
	ParamSalesperson = "vendedor"
	ParamMonthFrom   = "mes_inicial"
	ParamMonthTo     = "mes_final"
)

// ParseSelection reads a selection from query values. Missing values mean
// "no constraint". Categorical values keep their spacing since they must
// equal a cell exactly. Month bounds that are not YYYY-MM keys are ignored.
func ParseSelection(q url.Values) core.Selection {
	get := func(k string) string { return clean(q.Get(k)) }
	return core.Selection{
		Region:      get(ParamRegion),
		City:        get(ParamCity),
		Product:     get(ParamProduct),
		Salesperson: get(ParamSalesperson),
		MonthFrom:   monthParam(strings.TrimSpace(get(ParamMonthFrom))),
		MonthTo:     monthParam(strings.TrimSpace(get(ParamMonthTo))),
	}
}

// EncodeSelection is the inverse of ParseSelection. Sentinels are omitted.
func EncodeSelection(s core.Selection) url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if !core.IsSentinel(v) {
			q.Set(k, v)
		}
	}
	set(ParamRegion, s.Region)
	set(ParamCity, s.City)
	set(ParamProduct, s.Product)
	set(ParamSalesperson, s.Salesperson)
	set(ParamMonthFrom, s.MonthFrom)
	set(ParamMonthTo, s.MonthTo)
	return q
}

func monthParam(v string) string {
	if _, err := time.Parse("2006-01", v); err != nil || len(v) != 7 {
		return ""
	}
	return v
}

// clean drops control characters other than tab.
func clean(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, s)
}
