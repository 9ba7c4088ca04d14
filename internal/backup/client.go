package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds one remote backup call.
const DefaultTimeout = 10 * time.Second

// maxBlobSize caps how much of a response body is read.
const maxBlobSize = 1 << 20

var (
	// ErrNotFound is returned by Get when no blob exists under the ID.
	ErrNotFound = errors.New("backup not found")

	// ErrNoEndpoint is returned when no remote store is configured.
	ErrNoEndpoint = errors.New("no backup endpoint configured (set backup.base_url)")
)

// HTTPError reports an unexpected response status.
type HTTPError struct {
	Method     string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("backup %s: HTTP %d", e.Method, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// TimeoutError reports a remote call that did not finish in time.
type TimeoutError struct {
	Op    string
	After time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("backup %s timed out after %s", e.Op, e.After)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Remote is an opaque blob store addressed by sync ID.
type Remote interface {
	Put(ctx context.Context, id, blob string) error
	Get(ctx context.Context, id string) (string, error)
}

// Client talks to a key/value HTTP endpoint: PUT and GET on
// <baseURL>/<id>. It does not retry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithClientTimeout overrides DefaultTimeout.
func WithClientTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a Client for baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Put(ctx context.Context, id, blob string) error {
	_, err := c.do(ctx, http.MethodPut, id, strings.NewReader(blob))
	return err
}

func (c *Client) Get(ctx context.Context, id string) (string, error) {
	body, err := c.do(ctx, http.MethodGet, id, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *Client) do(ctx context.Context, method, id string, body io.Reader) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNoEndpoint
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + "/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create backup request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "text/plain")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Op: strings.ToLower(method), After: c.timeout, Err: err}
		}
		return nil, fmt.Errorf("backup %s: %w", strings.ToLower(method), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBlobSize))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Op: strings.ToLower(method), After: c.timeout, Err: err}
		}
		return nil, fmt.Errorf("read backup response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound && method == http.MethodGet:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &HTTPError{
			Method:     method,
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(truncate(data, 200))),
		}
	}
	return data, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
