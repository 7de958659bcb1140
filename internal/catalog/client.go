package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/corpix/uarand"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	domerrors "github.com/targetzero/coursebot/internal/errors"
	"github.com/targetzero/coursebot/internal/metrics"
)

// Source returns the full, unordered course catalog. Filtering is entirely
// client-side; there are no query parameters.
type Source interface {
	Courses(ctx context.Context) ([]Record, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Record, error)

// Courses implements Source.
func (f SourceFunc) Courses(ctx context.Context) ([]Record, error) {
	return f(ctx)
}

// maxBodySize bounds a catalog response after decompression.
const maxBodySize = 32 << 20

// Client fetches the catalog from an HTTP JSON endpoint.
type Client struct {
	httpClient   *http.Client
	url          string
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
	metrics      *metrics.Metrics
}

// NewClient creates a catalog client for url.
func NewClient(url string, timeout time.Duration, maxRetries int, m *metrics.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		url:          url,
		maxRetries:   maxRetries,
		initialDelay: 500 * time.Millisecond,
		maxDelay:     5 * time.Second,
		metrics:      m,
	}
}

// Courses fetches and decodes every listing.
func (c *Client) Courses(ctx context.Context) ([]Record, error) {
	start := time.Now()
	var records []Record

	err := retryWithBackoff(ctx, c.maxRetries, c.initialDelay, c.maxDelay, func() error {
		var err error
		records, err = c.fetch(ctx)
		return err
	})

	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordCatalogFetch(status, time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) fetch(ctx context.Context) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &permanentError{err: domerrors.NewCatalogError(c.url, 0, err)}
	}
	req.Header.Set("User-Agent", uarand.GetRandom())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, br, zstd")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &permanentError{err: domerrors.NewCatalogError(c.url, 0, ctx.Err())}
		}
		return nil, domerrors.NewCatalogError(c.url, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		cerr := domerrors.NewCatalogError(c.url, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode))
		switch {
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
			return nil, cerr
		default:
			return nil, &permanentError{err: cerr}
		}
	}

	reader, closeFn, err := decodeBody(resp)
	if err != nil {
		return nil, domerrors.NewCatalogError(c.url, resp.StatusCode, fmt.Errorf("decompress: %w", err))
	}
	defer closeFn()

	var records []Record
	if err := json.NewDecoder(io.LimitReader(reader, maxBodySize)).Decode(&records); err != nil {
		return nil, &permanentError{err: domerrors.NewCatalogError(c.url, resp.StatusCode, fmt.Errorf("decode: %w", err))}
	}
	for i := range records {
		records[i] = records[i].clean()
	}
	return records, nil
}

// decodeBody unwraps the response according to Content-Encoding.
// Setting Accept-Encoding by hand disables net/http's transparent gzip.
func decodeBody(resp *http.Response) (io.Reader, func(), error) {
	noop := func() {}
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return resp.Body, noop, nil
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, noop, err
		}
		return gz, func() { _ = gz.Close() }, nil
	case "br":
		return brotli.NewReader(resp.Body), noop, nil
	case "zstd":
		dec, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, noop, err
		}
		return dec, dec.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}
