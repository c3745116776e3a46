package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent when no other User-Agent is configured.
const DefaultUserAgent = "paletti"

// ErrUnknownSize is returned by GetFileSize when the server reports no length.
var ErrUnknownSize = errors.New("server did not report a content length")

// StatusError is returned when the server answers with an unexpected status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// Client wraps HTTP operations used by plugins and the download engine.
//
// Client provides:
//   - Configured User-Agent header
//   - Optional overall request timeout
//   - Optional bandwidth limit shared by every body it returns
//   - File size retrieval via HEAD, with a zero-byte range GET fallback
//
// Example usage:
//
//	client := NewClient(WithUserAgent("paletti"), WithRateLimit(2<<20))
//
//	// Fetch HTML content
//	html, err := client.GetString(ctx, "https://artist.bandcamp.com/track/name")
//
//	// Stream a body
//	body, err := client.Open(ctx, streamURL)
//	defer body.Close()
type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets an overall per-request timeout. Zero disables it, which
// is the default since a single media body may take minutes to stream.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit caps the combined read rate of all bodies returned by the
// client to bytesPerSecond. Zero or negative disables the limit.
func WithRateLimit(bytesPerSecond int64) Option {
	return func(c *Client) {
		if bytesPerSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(bytesPerSecond), int(bytesPerSecond))
	}
}

// WithProxy routes requests through the proxy chosen by proxy. A nil
// function disables proxies, including those from the environment.
func WithProxy(proxy func(*http.Request) (*url.URL, error)) Option {
	return func(c *Client) {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.Proxy = proxy
		c.httpClient.Transport = t
	}
}

// WithHTTPClient replaces the underlying *http.Client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new HTTP client.
//
// Without options the client has no timeout, no bandwidth limit and
// sends DefaultUserAgent.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// Open performs a GET request and returns the response body for streaming.
//
// Both 200 OK and 206 Partial Content are accepted. The caller must close
// the returned body. When a bandwidth limit is configured, reads from the
// body wait on the shared limiter.
//
// Example:
//
//	body, err := client.Open(ctx, "https://cdn.example.com/v.webm?range=0-1023")
//	if err != nil {
//	    return err
//	}
//	defer body.Close()
func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if c.limiter == nil {
		return resp.Body, nil
	}
	return &rateLimitedBody{ctx: ctx, body: resp.Body, limiter: c.limiter}, nil
}

// Get performs a GET request and returns the response body as bytes.
//
// Returns an error if:
//   - The request fails
//   - The response status is not 200 OK
//   - Reading the body fails
//
// Example:
//
//	data, err := client.Get(ctx, "https://example.com/image.jpg")
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return io.ReadAll(resp.Body)
}

// GetString performs a GET request and returns the response body as a string.
//
// This is a convenience wrapper around Get for fetching text content like HTML.
func (c *Client) GetString(ctx context.Context, url string) (string, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// DownloadBytes downloads a small file such as a thumbnail into memory.
// Large media must go through Open and be streamed to disk.
func (c *Client) DownloadBytes(ctx context.Context, url string) ([]byte, error) {
	return c.Get(ctx, url)
}

// GetFileSize returns the size of the resource at url without fetching it.
//
// A HEAD request is tried first. If it fails with a status error or
// carries no Content-Length, a GET with "Range: bytes=0-0" is sent and the
// total is read from Content-Range (or Content-Length on a 200 answer).
//
// Returns ErrUnknownSize if neither request yields a length.
//
// Example:
//
//	size, err := client.GetFileSize(ctx, streamURL)
//	fmt.Printf("File is %d bytes\n", size)
func (c *Client) GetFileSize(ctx context.Context, url string) (int64, error) {
	size, err := c.headSize(ctx, url)
	if err == nil {
		return size, nil
	}

	var statusErr *StatusError
	if !errors.Is(err, ErrUnknownSize) && !errors.As(err, &statusErr) {
		return 0, err
	}

	return c.rangeProbeSize(ctx, url)
}

func (c *Client) headSize(ctx context.Context, url string) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if resp.ContentLength < 0 {
		return 0, ErrUnknownSize
	}

	return resp.ContentLength, nil
}

func (c *Client) rangeProbeSize(ctx context.Context, url string) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		return parseContentRangeTotal(resp.Header.Get("Content-Range"))
	case http.StatusOK:
		if resp.ContentLength < 0 {
			return 0, ErrUnknownSize
		}
		return resp.ContentLength, nil
	default:
		return 0, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
}

// parseContentRangeTotal extracts the complete length from a header like
// "bytes 0-0/132000".
func parseContentRangeTotal(header string) (int64, error) {
	slash := strings.LastIndex(header, "/")
	if slash == -1 {
		return 0, ErrUnknownSize
	}

	total := strings.TrimSpace(header[slash+1:])
	if total == "*" {
		return 0, ErrUnknownSize
	}

	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid Content-Range %q: %w", header, ErrUnknownSize)
	}
	return n, nil
}
