// Package fetch performs the HTTP GET whose response ends up attested in a
// receipt. It only accepts 2xx responses with a JSON body.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// defaultMaxBody is the largest response body accepted.
	defaultMaxBody = 4 << 20 // 4 MB

	// defaultTimeout bounds a single request.
	defaultTimeout = 30 * time.Second
)

var (
	// ErrStatus is returned for non-2xx responses.
	ErrStatus = errors.New("fetch: unexpected status")

	// ErrNotJSON is returned when the body does not decode as JSON.
	ErrNotJSON = errors.New("fetch: body is not JSON")

	// ErrBodyTooLarge is returned when the body exceeds the configured limit.
	ErrBodyTooLarge = errors.New("fetch: body too large")
)

// Client fetches JSON documents over HTTP.
type Client struct {
	http    *http.Client // http is the underlying client
	maxBody int64        // maxBody is the body size limit in bytes
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithMaxBody sets the body size limit.
func WithMaxBody(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

// New creates a fetch client.
func New(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		maxBody: defaultMaxBody,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get fetches url and returns the body in compacted JSON form.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request:\n%w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s:\n%w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: %w %d", url, ErrStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body:\n%w", err)
	}

	if int64(len(body)) > c.maxBody {
		return nil, ErrBodyTooLarge
	}

	return compactJSON(body)
}

// compactJSON validates body and strips insignificant whitespace so the
// committed payload does not depend on server formatting.
func compactJSON(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJSON, err)
	}

	if buf.Len() == 0 {
		return nil, ErrNotJSON
	}

	return buf.Bytes(), nil
}
