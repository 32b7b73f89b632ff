// Package http serves the sales dashboard: the full page, the htmx partial
// re-rendered on every filter change, the chart images and a CSV export.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"vendas/internal/cache"
	"vendas/internal/core"
	"vendas/internal/log"
	"vendas/internal/middleware/ratelimit"
	"vendas/internal/middleware/security"
	"vendas/internal/middleware/trace"
	appweb "vendas/web"
)

// DatasetLoader is the part of the dataset loader the handlers use.
type DatasetLoader interface {
	Load(ctx context.Context) (core.Dataset, error)
	Ready() bool
	Invalidate()
}

// Options tune the server. Zero values pick the defaults.
type Options struct {
	RateLimit      int
	TrustedProxies []string
	// ChartTTL bounds how long a rendered chart is reused.
	ChartTTL       time.Duration
	ChartCacheSize int
	Logger         *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	loader    DatasetLoader
	logger    *log.Logger

	charts       *cache.LRUCache[[]byte]
	cacheManager *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	metrics      appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	started     time.Time
	renders     int64
	chartHits   int64
	chartMisses int64
	loadErrors  int64
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, loader DatasetLoader, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentHTTP})
	}
	if opts.ChartTTL <= 0 {
		opts.ChartTTL = time.Minute
	}
	if opts.ChartCacheSize <= 0 {
		opts.ChartCacheSize = 256
	}

	s := &Server{
		loader:       loader,
		logger:       opts.Logger,
		charts:       cache.NewLRUCache[[]byte](opts.ChartCacheSize, opts.ChartTTL),
		cacheManager: cache.NewManager(),
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimit}),
		detector:     security.NewDetector(),
		metrics:      appMetrics{started: time.Now()},
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, s.logger)

	s.cacheManager.Register(s.charts)
	s.cacheManager.StartCleanup(5 * time.Minute)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.WithComponent(log.ComponentTemplate).Error("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboardPartial)
	mux.HandleFunc("POST /ui/refresh", s.handleRefresh)
	mux.Handle("GET /charts/{file}", security.CacheControl("private, max-age=60")(http.HandlerFunc(s.handleChart)))
	mux.HandleFunc("GET /api/dashboard", s.handleAPI)
	mux.HandleFunc("GET /export.csv", s.handleExport)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, nil, "/healthz", "/readyz", "/metrics")

	var h http.Handler = mux
	h = limit(h)
	h = headers.Middleware(h)
	h = s.tracer.Middleware(h)
	h = s.detector.Middleware(s.logger.WithComponent(log.ComponentSecurity))(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Shutdown stops background cleanup and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
