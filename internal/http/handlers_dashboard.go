package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"vendas/internal/charts"
	"vendas/internal/core"
	"vendas/internal/dashboard"
	"vendas/internal/feed/csvfeed"
	"vendas/internal/log"
)

// loadView loads the dataset and renders it under the request's selection.
// Load failures end up in the view's errors, never in the HTTP status.
func (s *Server) loadView(r *http.Request, sel core.Selection) dashboard.View {
	ds, err := s.loader.Load(r.Context())
	if err != nil && !errors.Is(err, core.ErrMissingColumn) {
		atomic.AddInt64(&s.metrics.loadErrors, 1)
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Dataset unavailable",
			log.FieldError, err,
			log.FieldOperation, log.OpFetch)
	}
	atomic.AddInt64(&s.metrics.renders, 1)
	return dashboard.RenderResult(ds, err, sel)
}

// handleIndex renders the full page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	v := s.loadView(r, dashboard.ParseSelection(r.URL.Query()))
	s.renderTemplate(w, r, "index.html", newPage(v))
}

// handleDashboardPartial re-renders everything below the title. htmx calls
// it on every selector change.
func (s *Server) handleDashboardPartial(w http.ResponseWriter, r *http.Request) {
	v := s.loadView(r, dashboard.ParseSelection(r.URL.Query()))
	p := newPage(v)
	w.Header().Set("HX-Push-Url", p.PageURL())
	s.renderTemplate(w, r, "dashboard", p)
}

// handleRefresh drops the cached dataset and rendered charts before
// re-rendering with the posted selection.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "formulário inválido", http.StatusBadRequest)
		return
	}
	s.loader.Invalidate()
	s.charts.Purge()
	log.FromContext(r.Context()).InfoContext(r.Context(), "Dataset refresh requested")

	v := s.loadView(r, dashboard.ParseSelection(r.PostForm))
	s.renderTemplate(w, r, "dashboard", newPage(v))
}

// handleChart serves /charts/{kind}.svg for the selection in the query.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".svg")
	if !ok {
		http.NotFound(w, r)
		return
	}
	kind, err := charts.ParseKind(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	v := s.loadView(r, dashboard.ParseSelection(r.URL.Query()))
	if v.Unavailable() {
		http.Error(w, dashboard.ErrMsgFetch, http.StatusServiceUnavailable)
		return
	}

	key := chartKey(kind, v)
	svg, hit := s.charts.Get(key)
	if hit {
		atomic.AddInt64(&s.metrics.chartHits, 1)
	} else {
		atomic.AddInt64(&s.metrics.chartMisses, 1)
		var buf bytes.Buffer
		start := time.Now()
		if err := charts.Render(kind, v, &buf); err != nil {
			if errors.Is(err, charts.ErrNoData) {
				http.NotFound(w, r)
				return
			}
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Chart render failed",
				log.FieldError, err,
				log.FieldChart, string(kind),
				log.FieldOperation, log.OpRender)
			http.Error(w, "erro ao desenhar o gráfico", http.StatusInternalServerError)
			return
		}
		svg = buf.Bytes()
		s.charts.Set(key, svg)
		log.FromContext(r.Context()).DebugContext(r.Context(), "Chart rendered",
			log.FieldChart, string(kind),
			log.FieldDuration, time.Since(start).Milliseconds())
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Length", strconv.Itoa(len(svg)))
	_, _ = w.Write(svg)
}

// chartKey identifies a chart by kind, dataset version and selection.
func chartKey(k charts.Kind, v dashboard.View) string {
	return string(k) + "|" + strconv.FormatInt(v.FetchedAt.UnixNano(), 10) + "|" + v.Selection.Key()
}

// handleAPI returns the view as JSON.
func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	v := s.loadView(r, dashboard.ParseSelection(r.URL.Query()))
	status := http.StatusOK
	if v.Unavailable() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, newAPIView(v))
}

// handleExport downloads the filtered table as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	v := s.loadView(r, dashboard.ParseSelection(r.URL.Query()))
	if v.Unavailable() {
		http.Error(w, dashboard.ErrMsgFetch, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="vendas_filtradas.csv"`)
	if err := csvfeed.Encode(w, v.Columns, v.Rows); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export failed",
			log.FieldError, err,
			log.FieldOperation, log.OpExport)
	}
}

func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name)
		http.Error(w, "erro ao renderizar a página", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
