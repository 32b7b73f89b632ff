package csvfeed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"vendas/internal/core"
	"vendas/internal/feed"
)

// DefaultURL is the published sales sheet.
const DefaultURL = "https://docs.google.com/spreadsheets/d/e/2PACX-1vQoxoiVZ7UfM0vHtkieyby0zOQrtBl19D5R6j5wb8dKR62izmZjWuC3qeoAX9-wnO2AlVaSfqvK7pn7/pub?gid=0&single=true&output=csv"

// maxBody bounds the downloaded document.
const maxBody = 32 << 20

// Client fetches a published CSV over HTTP.
type Client struct {
	url  string
	http *http.Client
}

var _ feed.TableReader = (*Client)(nil)

// New creates a client for url with the given overall request timeout.
func New(url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{url: url, http: newHTTPClientWithPooling(timeout)}
}

// NewWithHTTPClient uses hc instead of the pooled default.
func NewWithHTTPClient(url string, hc *http.Client) *Client {
	return &Client{url: url, http: hc}
}

func (c *Client) Name() string { return "csv" }

// URL returns the feed location.
func (c *Client) URL() string { return c.url }

// ReadTable downloads and decodes the feed.
func (c *Client) ReadTable(ctx context.Context) (core.Table, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return core.Table{}, c.fail(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.http.Do(req)
	if err != nil {
		return core.Table{}, c.fail(fmt.Errorf("get: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return core.Table{}, c.fail(fmt.Errorf("unexpected status %s", resp.Status))
	}

	t, err := Decode(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return core.Table{}, c.fail(fmt.Errorf("decode: %w", err))
	}

	slog.InfoContext(ctx, "Fetched sales feed",
		"component", "feed",
		"source", c.Name(),
		"rows", len(t.Rows),
		"columns", len(t.Columns),
		"duration_ms", time.Since(start).Milliseconds())
	return t, nil
}

func (c *Client) fail(err error) error {
	return &core.FetchError{Source: c.Name(), Err: err}
}

// newHTTPClientWithPooling creates a client with connection pooling and
// per-phase timeouts for a single remote host.
func newHTTPClientWithPooling(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}
