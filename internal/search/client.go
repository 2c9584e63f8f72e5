// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/tomtom215/dynarank/internal/config"
	"github.com/tomtom215/dynarank/internal/metrics"
)

// ErrNotFound is returned by Settings and Mapping when the target does not exist.
var ErrNotFound = errors.New("search: index not found")

// maxErrorBodySize bounds how much of an error response is kept for messages.
const maxErrorBodySize = 64 * 1024

// maxResponseSize bounds a buffered search response.
const maxResponseSize = 256 << 20

// Request is one search call. Target is the index expression of the URL
// path and may be empty for a cluster wide search.
type Request struct {
	Method string
	Target string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Clone returns a copy whose Query, Header and Body can be modified freely.
func (r *Request) Clone() *Request {
	c := &Request{Method: r.Method, Target: r.Target}
	if r.Query != nil {
		c.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			c.Query[k] = append([]string(nil), v...)
		}
	}
	if r.Header != nil {
		c.Header = r.Header.Clone()
	}
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return c
}

// Response is a fully buffered upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusError describes a non-2xx answer to a metadata call.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request failed with status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Client talks to the search cluster. It is safe for concurrent use.
type Client struct {
	baseURL        *url.URL
	username       string
	password       string
	apiKey         string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient builds a client from the upstream configuration.
func NewClient(cfg config.UpstreamConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}

	c := &Client{
		baseURL:        base,
		username:       cfg.Username,
		password:       cfg.Password,
		apiKey:         cfg.APIKey,
		client:         &http.Client{Timeout: timeout},
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: baseDelay,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	return c, nil
}

// hopHeaders are never forwarded. Accept-Encoding is dropped so that the
// transport negotiates gzip itself and hands back a decoded body.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
	"Accept-Encoding",
	"Content-Length",
	"Host",
}

func (c *Client) endpoint(target, api string, query url.Values) string {
	var u *url.URL
	if target == "" {
		u = c.baseURL.JoinPath(api)
	} else {
		u = c.baseURL.JoinPath(target, api)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// authorize replaces any client credentials when the proxy has its own.
func (c *Client) authorize(req *http.Request) {
	switch {
	case c.apiKey != "":
		req.Header.Set("Authorization", "ApiKey "+c.apiKey)
	case c.username != "":
		req.SetBasicAuth(c.username, c.password)
	}
}

// do sends one request with retry on 429 and 503. The response body is
// read fully and closed.
func (c *Client) do(ctx context.Context, operation, method, rawURL string, header http.Header, body []byte) (*Response, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		var reader io.Reader = http.NoBody
		if len(body) > 0 {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for k, v := range header {
			req.Header[k] = append([]string(nil), v...)
		}
		for _, h := range hopHeaders {
			req.Header.Del(h)
		}
		if len(body) > 0 && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}
		c.authorize(req)

		start := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			metrics.RecordUpstream(operation, 0, time.Since(start))
			return nil, fmt.Errorf("%s request failed: %w", operation, err)
		}
		metrics.RecordUpstream(operation, resp.StatusCode, time.Since(start))

		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable
		if !retryable || attempt >= c.maxRetries {
			return readResponse(resp)
		}
		_ = resp.Body.Close()

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if ra := parseRetryAfter(resp.Header.Get("Retry-After")); ra > 0 {
			delay = ra
		}
		metrics.UpstreamRetries.WithLabelValues(operation).Inc()

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

func readResponse(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("upstream response exceeds %d bytes", maxResponseSize)
	}
	header := resp.Header.Clone()
	header.Del("Content-Length")
	return &Response{StatusCode: resp.StatusCode, Header: header, Body: body}, nil
}

// parseRetryAfter accepts delta seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// errorBody trims an error body for messages.
func errorBody(b []byte) string {
	if len(b) > maxErrorBodySize {
		return string(b[:maxErrorBodySize]) + "\n... (truncated)"
	}
	return string(b)
}

// Search forwards a search request. Any upstream status is returned as a
// Response; only transport failures are errors.
func (c *Client) Search(ctx context.Context, r *Request) (*Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodPost
	}
	return c.do(ctx, "search", method, c.endpoint(r.Target, "_search", r.Query), r.Header, r.Body)
}

// Settings returns the flattened settings of every index matched by target,
// keyed by concrete index name.
func (c *Client) Settings(ctx context.Context, target string) (map[string]map[string]any, error) {
	q := url.Values{"flat_settings": {"true"}}
	resp, err := c.metadata(ctx, "settings", c.endpoint(target, "_settings", q))
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(resp.Body)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("settings response for %s is not an object", target)
	}
	out := make(map[string]map[string]any)
	parsed.ForEach(func(index, body gjson.Result) bool {
		flat := make(map[string]any)
		body.Get("settings").ForEach(func(k, v gjson.Result) bool {
			flat[k.String()] = v.Value()
			return true
		})
		out[index.String()] = flat
		return true
	})
	return out, nil
}

// Mapping returns the raw _mapping response for target.
func (c *Client) Mapping(ctx context.Context, target string) ([]byte, error) {
	resp, err := c.metadata(ctx, "mapping", c.endpoint(target, "_mapping", nil))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// ClusterInfo is the subset of the root endpoint response used for health checks.
type ClusterInfo struct {
	Name        string
	ClusterName string
	Version     string
}

// Ping calls the root endpoint.
func (c *Client) Ping(ctx context.Context) (*ClusterInfo, error) {
	resp, err := c.metadata(ctx, "ping", c.baseURL.String())
	if err != nil {
		return nil, err
	}
	info := gjson.GetManyBytes(resp.Body, "name", "cluster_name", "version.number")
	return &ClusterInfo{Name: info[0].String(), ClusterName: info[1].String(), Version: info[2].String()}, nil
}

func (c *Client) metadata(ctx context.Context, operation, rawURL string) (*Response, error) {
	resp, err := c.do(ctx, operation, http.MethodGet, rawURL, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if !resp.OK() {
		return nil, &StatusError{Operation: operation, StatusCode: resp.StatusCode, Body: errorBody(resp.Body)}
	}
	return resp, nil
}
