package security

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// HeadersConfig holds security headers configuration
type HeadersConfig struct {
	// CSP maps directive names to their sources; see BuildCSP.
	CSP map[string][]string

	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	PermissionsPolicy   string
	CrossOriginOpener   string
	CrossOriginResource string
}

// HTMXSource is where the dashboard page loads htmx from.
const HTMXSource = "https://unpkg.com"

// DefaultHeadersConfig returns the headers for the dashboard pages. Charts
// are same-origin SVG images and htmx is the only third-party script.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: map[string][]string{
			"default-src":     {"'self'"},
			"script-src":      {"'self'", HTMXSource},
			"style-src":       {"'self'", "'unsafe-inline'"},
			"img-src":         {"'self'", "data:"},
			"connect-src":     {"'self'"},
			"object-src":      {"'none'"},
			"frame-ancestors": {"'none'"},
			"base-uri":        {"'self'"},
			"form-action":     {"'self'"},
		},

		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,

		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "strict-origin-when-cross-origin",
		PermissionsPolicy:   "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener:   "same-origin",
		CrossOriginResource: "same-origin",
	}
}

// BuildCSP renders directives in a stable order, default-src first.
func BuildCSP(directives map[string][]string) string {
	names := make([]string, 0, len(directives))
	for name := range directives {
		if name != "default-src" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := directives["default-src"]; ok {
		names = append([]string{"default-src"}, names...)
	}

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, strings.TrimSpace(name+" "+strings.Join(directives[name], " ")))
	}
	return strings.Join(parts, "; ")
}

// HeadersMiddleware applies security headers to responses
type HeadersMiddleware struct {
	config HeadersConfig
	csp    string
}

// NewHeadersMiddleware creates a new security headers middleware
func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	return &HeadersMiddleware{
		config: config,
		csp:    BuildCSP(config.CSP),
	}
}

// Middleware returns the HTTP middleware function
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.applyHeaders(w, r)
		next.ServeHTTP(w, r)
	})
}

func (h *HeadersMiddleware) applyHeaders(w http.ResponseWriter, r *http.Request) {
	headers := w.Header()
	set := func(name, value string) {
		if value != "" {
			headers.Set(name, value)
		}
	}

	set("X-Content-Type-Options", h.config.XContentTypeOptions)
	set("X-Frame-Options", h.config.XFrameOptions)
	set("Content-Security-Policy", h.csp)
	set("Referrer-Policy", h.config.ReferrerPolicy)
	set("Permissions-Policy", h.config.PermissionsPolicy)
	set("Cross-Origin-Opener-Policy", h.config.CrossOriginOpener)
	set("Cross-Origin-Resource-Policy", h.config.CrossOriginResource)

	// HSTS only makes sense over TLS.
	if r.TLS != nil && h.config.HSTSMaxAge > 0 {
		hsts := fmt.Sprintf("max-age=%d", h.config.HSTSMaxAge)
		if h.config.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		headers.Set("Strict-Transport-Security", hsts)
	}
}

// CacheControl sets a Cache-Control header on every response. Static assets
// use a long public max-age, rendered charts a short private one.
func CacheControl(value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if value != "" {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StaticAssetMiddleware adds caching headers for static assets
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	if maxAge <= 0 {
		return CacheControl("")
	}
	return CacheControl(fmt.Sprintf("public, max-age=%d", maxAge))
}
