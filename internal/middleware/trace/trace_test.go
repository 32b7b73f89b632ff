package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vendas/internal/log"
)

func TestMiddlewareTracesRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewText(&buf, slog.LevelInfo, log.ComponentHTTP)
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, logger)

	var seenID string
	var seenLogger *log.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		seenLogger = log.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/dashboard?regional=North", nil))

	if !strings.HasPrefix(seenID, "req_") || rec.Header().Get(HeaderRequestID) != seenID {
		t.Fatalf("request id not propagated: %q / %q", seenID, rec.Header().Get(HeaderRequestID))
	}
	if seenLogger == nil || seenLogger.Component() != log.ComponentHTTP {
		t.Fatal("request logger missing from context")
	}
	out := buf.String()
	for _, want := range []string{"HTTP request started", "HTTP request completed", "status_code=418", "client_ip=10.0.0.1", "request_id=" + seenID} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}

	met := m.GetMetrics()
	if met.TotalRequests != 1 || met.ServerErrors != 0 {
		t.Fatalf("metrics = %+v", met)
	}
}

func TestMetricsCountServerErrors(t *testing.T) {
	m := NewMiddleware(nil, log.NewText(&bytes.Buffer{}, slog.LevelError, log.ComponentHTTP))
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	if met := m.GetMetrics(); met.TotalRequests != 3 || met.ServerErrors != 3 {
		t.Fatalf("metrics = %+v", met)
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
