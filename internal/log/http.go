package log

import (
	"context"
	"log/slog"
	"net/http"
)

// RequestStarted logs an incoming request.
func (l *Logger) RequestStarted(ctx context.Context, r *http.Request, clientIP string) {
	f := requestFields(r).WithClientIP(clientIP)
	if ua := r.UserAgent(); ua != "" {
		f[FieldUserAgent] = ua
	}
	l.InfoContext(ctx, "HTTP request started", f.Args()...)
}

// RequestCompleted logs the outcome of a request. Client errors log at warn
// and server errors at error.
func (l *Logger) RequestCompleted(ctx context.Context, r *http.Request, status int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	f := requestFields(r).WithClientIP(clientIP)
	f[FieldStatusCode] = status
	f[FieldDuration] = durationMs
	l.Log(ctx, level, "HTTP request completed", f.Args()...)
}

func requestFields(r *http.Request) Fields {
	f := NewFields()
	f[FieldMethod] = r.Method
	f[FieldPath] = r.URL.Path
	if r.URL.RawQuery != "" {
		f[FieldQuery] = r.URL.RawQuery
	}
	return f
}
