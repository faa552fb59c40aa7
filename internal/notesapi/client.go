// Package notesapi is a typed HTTP client for the notes practice API.
//
// Every response is decoded into the API's envelope
// {success, status, message, data}. Non-2xx statuses are not errors at this
// layer: negative scenarios need the status and message, so callers decide
// what counts as a contract violation. Transport failures are returned as
// errs.Unavailable.
package notesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/logutil"
	"github.com/kuitang/notes-e2e/internal/obs"
)

const (
	// HeaderAuthToken carries the session token on authenticated requests.
	HeaderAuthToken = "X-Auth-Token"
	// HeaderContentFormat selects the response format. Only application/json
	// is accepted by the server.
	HeaderContentFormat = "X-Content-Format"

	maxLoggedBody = 2048
	maxBodyBytes  = 4 << 20
)

// Envelope is the JSON body every API endpoint returns.
type Envelope struct {
	Success bool            `json:"success"`
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Response is a decoded API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Envelope   Envelope
	Body       []byte
}

// DecodeData unmarshals the envelope's data member into v.
func (r *Response) DecodeData(v any) error {
	if len(r.Envelope.Data) == 0 || string(r.Envelope.Data) == "null" {
		return errs.New(errs.ContractViolation,
			fmt.Sprintf("response %d %q has no data", r.StatusCode, r.Envelope.Message))
	}
	if err := json.Unmarshal(r.Envelope.Data, v); err != nil {
		return errs.Wrap(errs.ContractViolation, "decode response data", err)
	}
	return nil
}

// Client talks to one deployment of the notes API.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit throttles outgoing requests. A non-positive rps disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New returns a client for the API rooted at apiBaseURL, for example
// "https://practice.expandtesting.com/notes/api/".
func New(apiBaseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(apiBaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("invalid API base URL %q", apiBaseURL))
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	c := &Client{
		base: u,
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client resolves paths against.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// RequestOption adjusts a single request.
type RequestOption func(*http.Request)

// WithToken sends token as X-Auth-Token. The token is sent verbatim so that
// negative scenarios can pass a corrupted value.
func WithToken(token string) RequestOption {
	return func(r *http.Request) { r.Header.Set(HeaderAuthToken, token) }
}

// WithContentFormat sets X-Content-Format.
func WithContentFormat(format string) RequestOption {
	return func(r *http.Request) { r.Header.Set(HeaderContentFormat, format) }
}

// WithHeader sets an arbitrary header.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// Do sends method to path (relative to the API root) with body encoded as
// JSON when non-nil, and decodes the envelope.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "invalid API path "+path, err)
	}
	target := c.base.ResolveReference(ref)

	var reqBody []byte
	if body != nil {
		reqBody, err = json.Marshal(body)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidArgument, "encode request body", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	corr := obs.CorrelationFromContext(ctx)
	corr.RequestID = ""
	obs.SetCorrelationHeaders(req.Header, corr)
	for _, opt := range opts {
		opt(req)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errs.Wrap(errs.Unavailable, "rate limiter", err)
		}
	}

	logger := obs.From(ctx).With("component", "notesapi")
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("api_request_failed",
			"method", method,
			"path", target.Path,
			"error", err,
		)
		return nil, errs.Wrap(errs.Unavailable, fmt.Sprintf("%s %s", method, target.Path), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "read response body", err)
	}

	logger.Debug("api_request",
		"method", method,
		"path", target.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_headers", logutil.FormatHeadersForLog(req.Header),
		"request_body", logutil.FormatBodyForLog("application/json", reqBody, maxLoggedBody),
		"response_body", logutil.FormatBodyForLog(resp.Header.Get("Content-Type"), raw, maxLoggedBody),
	)

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}
	if err := json.Unmarshal(raw, &out.Envelope); err != nil {
		return out, errs.Wrap(errs.ContractViolation,
			fmt.Sprintf("%s %s returned %d with a non-JSON body", method, target.Path, resp.StatusCode), err)
	}
	return out, nil
}
