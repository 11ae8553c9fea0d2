// Package remote is the HTTP client for the natural-language query service.
//
// Every call resolves to a value or one of three typed errors: *HTTPError
// for non-2xx answers, *NetworkError when no response arrived, and
// *MalformedResponseError when a 2xx body cannot be decoded. Responses are
// normalized here so the workspace never sees the service's field-name
// variants. There are no retries; callers re-invoke an operation if they
// want another attempt.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds non-upload requests when the caller sets none.
const DefaultTimeout = 30 * time.Second

// Client talks to the remote service.
type Client struct {
	baseURL       string
	http          *http.Client
	timeout       time.Duration
	uploadTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeouts sets the per-request timeouts for regular calls and uploads.
func WithTimeouts(regular, upload time.Duration) Option {
	return func(c *Client) {
		if regular > 0 {
			c.timeout = regular
		}
		if upload > 0 {
			c.uploadTimeout = upload
		}
	}
}

// New creates a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{},
		timeout:       DefaultTimeout,
		uploadTimeout: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListTables returns the registered tables in service order.
func (c *Client) ListTables(ctx context.Context) ([]TableSummary, error) {
	const op = "list tables"

	body, err := c.doJSON(ctx, op, http.MethodGet, "/api/tables", nil)
	if err != nil {
		return nil, err
	}

	tables, err := decodeTables(body)
	if err != nil {
		return nil, &MalformedResponseError{Op: op, Err: err}
	}
	return tables, nil
}

// GetSchema returns the column list of one table.
func (c *Client) GetSchema(ctx context.Context, tableID string) (Schema, error) {
	const op = "get schema"

	body, err := c.doJSON(ctx, op, http.MethodGet, "/api/tables/"+url.PathEscape(tableID), nil)
	if err != nil {
		return Schema{}, err
	}

	schema, err := decodeSchema(body)
	if err != nil {
		return Schema{}, &MalformedResponseError{Op: op, Err: err}
	}
	return schema, nil
}

// DeleteTable removes a table. Any 2xx answer is success.
func (c *Client) DeleteTable(ctx context.Context, tableID string) error {
	_, err := c.doJSON(ctx, "delete table", http.MethodDelete, "/api/tables/"+url.PathEscape(tableID), nil)
	return err
}

// RunQuery submits a natural-language question and returns the normalized result.
func (c *Client) RunQuery(ctx context.Context, query string) (QueryResult, error) {
	const op = "run query"

	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return QueryResult{}, fmt.Errorf("%s: encode request: %w", op, err)
	}

	body, err := c.doJSON(ctx, op, http.MethodPost, "/api/query", payload)
	if err != nil {
		return QueryResult{}, err
	}

	result, err := decodeQueryResult(body)
	if err != nil {
		return QueryResult{}, &MalformedResponseError{Op: op, Err: err}
	}
	return result, nil
}

// doJSON performs a request with a JSON (or empty) body and returns the
// response body of a 2xx answer.
func (c *Client) doJSON(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, op)
}

// send executes req and classifies the outcome.
func (c *Client) send(req *http.Request, op string) ([]byte, error) {
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("remote request failed", "op", op, "method", req.Method, "path", req.URL.Path, "error", err)
		return nil, &NetworkError{Op: op, Err: unwrapURLError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		slog.Debug("remote request rejected", "op", op, "status", resp.StatusCode)
		return nil, &HTTPError{Op: op, Status: resp.StatusCode, Message: errorDetail(detail)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	slog.Debug("remote request",
		"op", op,
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

// unwrapURLError strips the *url.Error envelope, which repeats method and URL.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
