package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"testing"

	"vendas/internal/charts"
	"vendas/internal/core"
	"vendas/internal/dashboard"
	"vendas/internal/dataset"
	"vendas/internal/feed/memory"
	"vendas/internal/log"
)

func salesTable() core.Table {
	return core.Table{
		Columns: []string{"Data", "Regional", "Cidade", "Produto", "Vendedor", "Valor"},
		Rows: [][]string{
			{"2024-01-05", "North", "Recife", "Notebook", "Ana", "100"},
			{"2024-02-10", "South", "Porto Alegre", "Mouse", "Bruno", "200"},
			{"invalid", "North", "Recife", "Notebook", "Ana", "50"},
		},
	}
}

func quietLogger() *log.Logger {
	return log.NewText(io.Discard, slog.LevelError, log.ComponentHTTP)
}

func newTestServer(t *testing.T, loader DatasetLoader) *Server {
	t.Helper()
	srv := NewServer(":0", loader, Options{Logger: quietLogger()})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func newMemoryServer(t *testing.T, table core.Table) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New(table)
	loader := dataset.New(store, dataset.WithLogger(quietLogger()))
	return newTestServer(t, loader), store
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

type fakeLoader struct {
	ds          core.Dataset
	err         error
	ready       bool
	invalidated int
}

func (f *fakeLoader) Load(context.Context) (core.Dataset, error) { return f.ds, f.err }
func (f *fakeLoader) Ready() bool                                 { return f.ready }
func (f *fakeLoader) Invalidate()                                 { f.invalidated++ }

func TestIndexRendersDashboard(t *testing.T) {
	srv, _ := newMemoryServer(t, salesTable())

	rr := get(t, srv, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{
		dashboard.Title,
		"🌎 Escolha a Regional:",
		"🏙️ Escolha a Cidade:",
		"📦 Escolha o Produto:",
		"🧑‍💼 Escolha o Vendedor:",
		"📆 Mês Inicial:",
		"📆 Mês Final:",
		`<option value="Todas" selected>Todas</option>`,
		`<option value="Todos" selected>Todos</option>`,
		`<option value="2024-02" selected>2024-02</option>`,
		`src="/charts/produto.svg?`,
		`src="/charts/evolucao.svg?`,
		"📄 Dados Filtrados:",
		"<td>Porto Alegre</td>",
		"2 linhas",
		"1 descartadas",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if got := rr.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
		t.Errorf("content type = %q", got)
	}
	if rr.Header().Get("Content-Security-Policy") == "" || rr.Header().Get("X-Request-ID") == "" {
		t.Error("middleware headers missing")
	}
}

func TestUnknownPathIsNotFound(t *testing.T) {
	srv, _ := newMemoryServer(t, salesTable())
	if rr := get(t, srv, "/nope"); rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestDashboardPartialFilters(t *testing.T) {
	srv, _ := newMemoryServer(t, salesTable())

	rr := get(t, srv, "/ui/dashboard?regional=North&mes_inicial=2024-01&mes_final=2024-02")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "<html") || !strings.Contains(body, `id="dashboard"`) {
		t.Fatal("partial should render only the dashboard fragment")
	}
	if !strings.Contains(body, "1 linhas") || strings.Contains(body, "<td>Porto Alegre</td>") {
		t.Fatalf("filter not applied:\n%s", body)
	}
	if got, want := rr.Header().Get("HX-Push-Url"), "/?mes_final=2024-02&mes_inicial=2024-01&regional=North"; got != want {
		t.Errorf("HX-Push-Url = %q, want %q", got, want)
	}
}

func TestDashboardInvertedRangeWarns(t *testing.T) {
	srv, _ := newMemoryServer(t, salesTable())

	body := get(t, srv, "/ui/dashboard?mes_inicial=2024-03&mes_final=2024-01").Body.String()
	if !strings.Contains(body, dashboard.WarnNoData) {
		t.Fatal("missing empty-result warning")
	}
	if strings.Contains(body, "/charts/evolucao.svg") {
		t.Fatal("timeline must not be drawn for an empty result")
	}
	if !strings.Contains(body, "Sem dados para exibir.") {
		t.Fatal("empty charts should degrade to a placeholder")
	}
	if !strings.Contains(body, "<th>Data</th>") {
		t.Fatal("table header should still be shown")
	}
}

func TestChartEndpoint(t *testing.T) {
	srv, _ := newMemoryServer(t, salesTable())

	for _, k := range charts.Kinds {
		rr := get(t, srv, "/charts/"+string(k)+".svg")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", k, rr.Code, rr.Body.String())
		}
		if ct := rr.Header().Get("Content-Type"); ct != "image/svg+xml" {
			t.Errorf("%s content type = %q", k, ct)
		}
		if !strings.Contains(rr.Body.String(), "<svg") {
			t.Errorf("%s body is not svg", k)
		}
	}

	get(t, srv, "/charts/produto.svg")
	if hits := srv.metrics.chartHits; hits != 1 {
		t.Fatalf("chart cache hits = %d, want 1", hits)
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/charts/pizza.svg", http.StatusNotFound},
		{"/charts/produto.png", http.StatusNotFound},
		{"/charts/produto.svg?mes_inicial=2024-03&mes_final=2024-01", http.StatusNotFound},
	}
	for _, tt := range tests {
		if rr := get(t, srv, tt.target); rr.Code != tt.want {
			t.Errorf("%s status=%d, want %d", tt.target, rr.Code, tt.want)
		}
	}
}

func TestExportCSV(t *testing.T) {
	srv, _ := newMemoryServer(t, salesTable())

	rr := get(t, srv, "/export.csv?produto=Mouse")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "vendas_filtradas.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	records, err := csv.NewReader(rr.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %v", records)
	}
	if records[0][0] != "Data" || records[0][len(records[0])-1] != "Mês" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][1] != "South" || records[1][0] != "2024-02-10" {
		t.Errorf("row = %v", records[1])
	}
}

func TestAPIDashboard(t *testing.T) {
	srv, _ := newMemoryServer(t, salesTable())

	rr := get(t, srv, "/api/dashboard?"+url.Values{"cidade": {"Recife"}}.Encode())
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got apiView
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Rows != 1 || got.Total != 100 || got.Dropped != 1 {
		t.Fatalf("unexpected view: %+v", got)
	}
	if got.Selection.City != "Recife" || got.Selection.Region != core.AllFeminine {
		t.Fatalf("selection = %+v", got.Selection)
	}
	if len(got.Options.Regions) != 3 || got.Options.Regions[0] != core.AllFeminine {
		t.Fatalf("region options = %v", got.Options.Regions)
	}
	if len(got.Timeline) != 1 || got.Timeline[0].Date != "2024-01-05" {
		t.Fatalf("timeline = %+v", got.Timeline)
	}
	if got.FetchedAt == nil || got.Source != "memory" {
		t.Fatalf("provenance missing: %+v", got)
	}
}

func TestAPISelectsValueWithSurroundingSpace(t *testing.T) {
	srv, _ := newMemoryServer(t, core.Table{
		Columns: []string{"Data", "Regional", "Valor"},
		Rows: [][]string{
			{"2024-01-05", "North ", "100"},
			{"2024-01-06", "North", "40"},
			{"2024-01-07", "South", "200"},
		},
	})

	rr := get(t, srv, "/api/dashboard?regional=North%20")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got apiView
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Selection.Region != "North " {
		t.Fatalf("selection = %q", got.Selection.Region)
	}
	if got.Rows != 1 || got.Total != 100 || len(got.Warnings) != 0 {
		t.Fatalf("expected only the spaced region, got rows=%d total=%v warnings=%v", got.Rows, got.Total, got.Warnings)
	}
	if want := []string{core.AllFeminine, "North ", "North", "South"}; !slices.Equal(got.Options.Regions, want) {
		t.Fatalf("region options = %q", got.Options.Regions)
	}
}

func TestFetchErrorIsShownNotFatal(t *testing.T) {
	loader := &fakeLoader{err: &core.FetchError{Source: "csv", Err: errors.New("connection refused")}}
	srv := newTestServer(t, loader)

	rr := get(t, srv, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, dashboard.ErrMsgFetch) {
		t.Fatal("fetch error not surfaced")
	}
	if strings.Contains(body, "/charts/") {
		t.Fatal("no charts without data")
	}

	for _, target := range []string{"/charts/produto.svg", "/api/dashboard", "/export.csv", "/readyz"} {
		if rr := get(t, srv, target); rr.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status=%d, want 503", target, rr.Code)
		}
	}
	if srv.metrics.loadErrors == 0 {
		t.Error("load errors not counted")
	}
}

func TestMissingDateColumnDegrades(t *testing.T) {
	srv, _ := newMemoryServer(t, core.Table{
		Columns: []string{"Regional", "Valor"},
		Rows:    [][]string{{"North", "10"}},
	})

	rr := get(t, srv, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "A coluna &#39;Data&#39; não foi encontrada") {
		t.Fatalf("missing column error not shown:\n%s", body)
	}
	if !strings.Contains(body, "<th>Regional</th>") {
		t.Fatal("table should still render with the source header")
	}
	if rr := get(t, srv, "/readyz"); rr.Code != http.StatusOK {
		t.Fatalf("readyz status=%d", rr.Code)
	}
}

func TestRefreshReloadsDataset(t *testing.T) {
	srv, store := newMemoryServer(t, salesTable())
	get(t, srv, "/")
	reads := store.Reads()

	updated := salesTable()
	updated.Rows = append(updated.Rows, []string{"2024-03-01", "North", "Natal", "Monitor", "Carla", "300"})
	store.Replace(updated)

	if body := get(t, srv, "/").Body.String(); strings.Contains(body, "Natal") {
		t.Fatal("cached dataset should still be served before refresh")
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ui/refresh", strings.NewReader("regional=North"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<td>Natal</td>") || strings.Contains(body, "<td>Porto Alegre</td>") {
		t.Fatalf("refresh did not reload or lost the selection:\n%s", body)
	}
	if store.Reads() != reads+1 {
		t.Fatalf("reads = %d, want %d", store.Reads(), reads+1)
	}
}

func TestHealthReadyAndMetrics(t *testing.T) {
	loader := &fakeLoader{}
	srv := newTestServer(t, loader)

	if rr := get(t, srv, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
	if rr := get(t, srv, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before load status=%d", rr.Code)
	}
	loader.ready = true
	rr := get(t, srv, "/readyz")
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz status=%d", rr.Code)
	}
	var ready struct {
		Status string         `json:"status"`
		Checks map[string]any `json:"checks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&ready); err != nil {
		t.Fatal(err)
	}
	if ready.Status != "ready" || ready.Checks["dataset"] != "ok" {
		t.Fatalf("ready = %+v", ready)
	}

	body := get(t, srv, "/metrics").Body.String()
	for _, want := range []string{"http_requests_total", "chart_cache_entries 0", "rate_limit_hits_total 0"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newMemoryServer(t, salesTable())
	rr := get(t, srv, "/static/app.css")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", cc)
	}
}
