package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"vendas/internal/core"
	"vendas/internal/feed"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// valuesGetter is the subset of the Sheets API the client needs.
type valuesGetter interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
}

type apiValues struct {
	svc *gsheet.Service
}

func (a apiValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// Client reads the sales sheet through the Google Sheets API. It serves the
// same table as the published CSV but works for private spreadsheets.
type Client struct {
	values        valuesGetter
	spreadsheetID string
	rng           string
}

var _ feed.TableReader = (*Client)(nil)

// Config selects the spreadsheet and credentials.
type Config struct {
	SpreadsheetID string
	// Range in A1 notation, e.g. "Vendas!A:Z". Defaults to "A:Z" of the first sheet.
	Range              string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// New creates a Sheets client using service-account credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newWithValues(apiValues{svc: svc}, cfg.SpreadsheetID, cfg.Range), nil
}

func newWithValues(v valuesGetter, spreadsheetID, rng string) *Client {
	if strings.TrimSpace(rng) == "" {
		rng = "A:Z"
	}
	return &Client{values: v, spreadsheetID: spreadsheetID, rng: rng}
}

func (c *Client) Name() string { return "sheets" }

// ReadTable fetches the configured range. The first row is the header.
func (c *Client) ReadTable(ctx context.Context) (core.Table, error) {
	if c.values == nil {
		return core.Table{}, c.fail(errors.New("sheets service not initialized"))
	}
	values, err := c.values.Get(ctx, c.spreadsheetID, c.rng)
	if err != nil {
		return core.Table{}, c.fail(fmt.Errorf("read %s: %w", c.rng, err))
	}
	t, err := toTable(values)
	if err != nil {
		return core.Table{}, c.fail(err)
	}
	slog.InfoContext(ctx, "Fetched sales sheet",
		"component", "feed",
		"source", c.Name(),
		"range", c.rng,
		"rows", len(t.Rows))
	return t, nil
}

func (c *Client) fail(err error) error {
	return &core.FetchError{Source: c.Name(), Err: err}
}

// toTable converts a values matrix into a table, padding short rows and
// skipping blank ones.
func toTable(values [][]interface{}) (core.Table, error) {
	if len(values) == 0 {
		return core.Table{}, errors.New("sheet range is empty")
	}
	header := toStrings(values[0])
	t := core.Table{Columns: header}
	for _, raw := range values[1:] {
		cells := toStrings(raw)
		blank := true
		for _, v := range cells {
			if v != "" {
				blank = false
				break
			}
		}
		if blank {
			continue
		}
		row := make([]string, len(header))
		copy(row, cells)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// newSheetsService initializes a read-only Sheets service from inline JSON,
// a credentials file, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credsJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	credsFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if credsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var raw []byte
	switch {
	case credsJSON != "":
		raw = []byte(credsJSON)
	case credsFile != "":
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		raw = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service",
		"component", "feed",
		"credentials_size", len(raw),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(raw),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}
