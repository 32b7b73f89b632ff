package log

import (
	"maps"
	"slices"
)

// Attribute keys used across the dashboard logs.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldSource     = "source"
	FieldRows       = "rows"
	FieldDropped    = "dropped_rows"
	FieldSnapshotID = "snapshot_id"
	FieldChart      = "chart"
)

// Component names.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentDataset   = "dataset"
	ComponentFeed      = "feed"
	ComponentCharts    = "charts"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
	ComponentTemplate  = "template"
)

// Operation names.
const (
	OpFetch    = "fetch"
	OpArchive  = "archive"
	OpPublish  = "publish"
	OpPrune    = "prune"
	OpRender   = "render"
	OpExport   = "export"
	OpShutdown = "shutdown"
)

// Fields collects attributes before handing them to slog.
type Fields map[string]any

func NewFields() Fields {
	return make(Fields)
}

func (f Fields) WithClientIP(ip string) Fields {
	if ip != "" {
		f[FieldClientIP] = ip
	}
	return f
}

// WithError records err's message; nil is ignored.
func (f Fields) WithError(err error) Fields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f Fields) WithOperation(op string) Fields {
	f[FieldOperation] = op
	return f
}

// WithDataset describes a loaded dataset.
func (f Fields) WithDataset(source string, rows, dropped int) Fields {
	f[FieldSource] = source
	f[FieldRows] = rows
	f[FieldDropped] = dropped
	return f
}

// Args flattens f into slog key/value arguments, sorted by key so records
// read the same on every run.
func (f Fields) Args() []any {
	keys := slices.Sorted(maps.Keys(f))
	args := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, k, f[k])
	}
	return args
}
