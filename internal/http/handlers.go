package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.started).Round(time.Second).String(),
	})
}

// handleReady reports ready once templates parsed and the dataset was
// loaded at least once.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.loader.Ready() {
		checks["dataset"] = "ok"
	} else {
		checks["dataset"] = "not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	checks["chart_cache"] = map[string]any{"entries": s.charts.Size(), "status": "ok"}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients(), "status": "ok"}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	w.WriteHeader(http.StatusOK)
	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "Mean response time", "gauge", traceMetrics.AverageResponseTime)
	metric("dashboard_renders_total", "Dashboard views rendered", "counter", atomic.LoadInt64(&s.metrics.renders))
	metric("dataset_load_errors_total", "Renders that could not load the dataset", "counter", atomic.LoadInt64(&s.metrics.loadErrors))
	metric("chart_cache_hits_total", "Chart renders served from cache", "counter", atomic.LoadInt64(&s.metrics.chartHits))
	metric("chart_cache_misses_total", "Charts drawn on demand", "counter", atomic.LoadInt64(&s.metrics.chartMisses))
	metric("chart_cache_entries", "Current chart cache entries", "gauge", s.charts.Size())
	metric("rate_limit_hits_total", "Requests refused by the rate limiter", "counter", limitMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", limitMetrics.ClientCount)
	metric("suspicious_requests_total", "Suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	metric("blocked_requests_total", "Requests refused by the detector", "counter", securityMetrics.BlockedRequests)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.metrics.started).Seconds()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
