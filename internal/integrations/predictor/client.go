// Package predictor talks to the remote battery-size prediction service.
//
// The service accepts a five-field pack specification and returns cell
// dimension predictions together with a DeepSeek-generated analysis. The
// client deliberately returns the raw response body on success: the payload
// is validated field by field in the usecase layer, so a schema change
// upstream degrades into a user-visible message instead of a silent zero.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/YichunLL/gGPT/internal/domain"
)

const defaultTimeout = 30 * time.Second

// StatusError is returned when the prediction service answers with a
// non-2xx status. Body carries a capped copy of the response so callers can
// surface it to the user.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("predictor: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// HTTPStatusCode exposes the status code without forcing callers to depend
// on the concrete type.
func (e *StatusError) HTTPStatusCode() int { return e.StatusCode }

// ResponseBody exposes the capped upstream body for display purposes.
func (e *StatusError) ResponseBody() string { return e.Body }

// RequestError is returned when the request never produced an HTTP
// response: DNS failure, connection refused, timeout.
type RequestError struct {
	URL string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("predictor: request to %s failed: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Client calls the prediction service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises the Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (30s timeout).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// NewClient builds a prediction client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("predictor: base URL must not be empty")
	}
	c := &Client{baseURL: baseURL}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return c, nil
}

func predictURL(base string) string {
	return strings.TrimRight(base, "/") + "/predict/"
}

// Predict posts the pack specification and returns the raw response body on
// any 2xx status. Transport failures come back as *RequestError, non-2xx
// statuses as *StatusError.
func (c *Client) Predict(ctx context.Context, spec domain.PackSpec) ([]byte, error) {
	payload, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("predictor: marshal request: %w", err)
	}

	url := predictURL(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("predictor: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("predictor: read response: %w", err)
	}
	return body, nil
}
