package analyzer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultFetchTimeout bounds a single page fetch.
const DefaultFetchTimeout = 10 * time.Second

// DefaultMaxBodySize caps how much of a page is read. Longer bodies are
// truncated.
const DefaultMaxBodySize = 10 << 20

// DefaultUserAgent identifies the crawler to analyzed sites.
const DefaultUserAgent = "Mozilla/5.0 (compatible; Metalyz-SEO-Bot/1.0; +https://seo-meta-master.vercel.app)"

// Fetcher retrieves the HTML of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// HTTPFetcher fetches pages over HTTP without executing JavaScript.
type HTTPFetcher struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
}

var _ Fetcher = (*HTTPFetcher)(nil)

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithTimeout overrides DefaultFetchTimeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.timeout = d
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize overrides DefaultMaxBodySize.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *HTTPFetcher) {
		f.maxBodySize = n
	}
}

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// NewHTTPFetcher creates an HTTPFetcher with a pooled, trace-propagating transport.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		timeout:     DefaultFetchTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		transport := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
		f.client = &http.Client{
			Timeout:   f.timeout,
			Transport: otelhttp.NewTransport(transport),
		}
	}

	return f
}

// Fetch downloads url and measures the time until the body is fully read.
// Any non-2xx status is an error carrying the status code and text.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Page{
		URL:      url,
		HTML:     string(body),
		LoadTime: time.Since(start).Milliseconds(),
		Size:     len(body),
	}, nil
}
