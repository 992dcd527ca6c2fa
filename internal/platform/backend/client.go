// Package backend talks to the clinical records API that computes the
// dashboard aggregates. It performs single JSON GETs and file downloads, and
// wraps them in the two-attempt prefix policy used for every logical resource.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody caps how much of a failed response body is kept in errors.
const maxErrorBody = 512

// RequestError describes a failed request: either a transport error or a
// non-2xx status.
type RequestError struct {
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("GET %s: %v", e.Path, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("GET %s: status %d: %s", e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("GET %s: status %d", e.Path, e.StatusCode)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Getter performs one GET attempt against a backend-relative path and returns
// the raw JSON body.
type Getter interface {
	GetJSON(ctx context.Context, path string) (json.RawMessage, error)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout sets the per-attempt timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) { cl.httpClient.Timeout = d }
}

// Client is an HTTP Getter rooted at the backend base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for baseURL (scheme and host, optional path).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetJSON issues a GET for path and returns the body when the status is 2xx.
func (c *Client) GetJSON(ctx context.Context, path string) (json.RawMessage, error) {
	resp, err := c.get(ctx, path, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return json.RawMessage(body), nil
}

// Download issues a GET for a backend-generated file. The caller owns the
// returned body and must close it.
func (c *Client) Download(ctx context.Context, path string) (*File, error) {
	resp, err := c.get(ctx, path, "*/*")
	if err != nil {
		return nil, err
	}
	return &File{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Disposition: resp.Header.Get("Content-Disposition"),
		Size:        resp.ContentLength,
	}, nil
}

func (c *Client) get(ctx context.Context, path, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &RequestError{Path: path, Err: err}
	}
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Path: path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &RequestError{Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

// File is a streamed download.
type File struct {
	Body        io.ReadCloser
	ContentType string
	Disposition string
	Size        int64
}
