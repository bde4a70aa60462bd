// Package client is the external-call capability consumed by journey steps.
// The engine only needs timing, status, and a per-call timeout; the wire
// details stay here.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Request describes one external call.
type Request struct {
	Method  string
	Path    string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
}

// Response carries what the engine records: status, payload, and how long
// the call took.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// Caller performs external calls for journey steps.
type Caller interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// HTTPCaller is a Caller over net/http with a pooled transport. The base
// URL and default headers are fixed at construction and immutable for the
// run.
type HTTPCaller struct {
	base          *url.URL
	client        *http.Client
	defaultHeader http.Header
}

// NewHTTPCaller builds a caller for the given base URL. defaultHeader may
// be nil.
func NewHTTPCaller(baseURL string, defaultHeader http.Header) (*HTTPCaller, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: base url %q needs scheme and host", baseURL)
	}

	transport := &http.Transport{
		MaxIdleConns:        256,
		MaxIdleConnsPerHost: 256,
		IdleConnTimeout:     90 * time.Second,
	}

	return &HTTPCaller{
		base:          base,
		client:        &http.Client{Transport: transport},
		defaultHeader: defaultHeader,
	}, nil
}

// Do performs the call. A positive Request.Timeout bounds just this call;
// cancellation of ctx is honored either way.
func (c *HTTPCaller) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(req.Path, "/")

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}

	for k, vs := range c.defaultHeader {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	start := time.Now()
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", req.Method, req.Path, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	duration := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("client: read response body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
		Duration:   duration,
	}, nil
}
