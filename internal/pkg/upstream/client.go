// Package upstream is a small JSON-over-HTTP client for the external
// services the API depends on (routing, geocoding, booking backend).
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samirrijal/roadcap/internal/pkg/metrics"
	"github.com/samirrijal/roadcap/internal/pkg/telemetry"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
)

// StatusError is returned for non-2xx responses. Body holds the raw response.
type StatusError struct {
	Provider string
	Status   int
	Body     []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.Status)
}

// Client issues GET requests against one base URL.
type Client struct {
	name      string
	baseURL   string
	timeout   time.Duration
	userAgent string
	http      *fasthttp.Client
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client. name labels metrics and spans.
func New(name, baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		name:      name,
		baseURL:   strings.TrimRight(baseURL, "/"),
		timeout:   timeout,
		userAgent: "roadcap/1.0",
		http: &fasthttp.Client{
			Name:                     "roadcap",
			ReadTimeout:              timeout,
			WriteTimeout:             timeout,
			MaxIdleConnDuration:      30 * time.Second,
			NoDefaultUserAgentHeader: true,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider label.
func (c *Client) Name() string { return c.name }

// GetJSON fetches path with the given query and decodes the body into out.
// For non-2xx responses it returns a *StatusError and, when the body is JSON,
// still decodes it into out so callers can read provider error codes.
func (c *Client) GetJSON(ctx context.Context, operation, path string, query *fasthttp.Args, out any) (err error) {
	ctx, span := telemetry.Start(ctx, c.name+"."+operation,
		attribute.String("provider", c.name),
		attribute.String("http.path", path),
	)
	start := time.Now()
	defer func() {
		metrics.ProviderDuration.WithLabelValues(c.name, operation).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ProviderErrors.WithLabelValues(c.name, operation).Inc()
		}
		telemetry.End(span, err)
	}()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s %s: %w", c.name, operation, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := c.baseURL + path
	if query != nil && query.Len() > 0 {
		uri += "?" + query.String()
	}
	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	req.Header.SetUserAgent(c.userAgent)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("%s %s: %w", c.name, operation, err)
	}

	status := resp.StatusCode()
	body := resp.Body()
	span.SetAttributes(attribute.Int("http.status_code", status))

	if status < 200 || status > 299 {
		serr := &StatusError{Provider: c.name, Status: status, Body: append([]byte(nil), body...)}
		if out != nil && len(body) > 0 {
			_ = json.Unmarshal(body, out)
		}
		return serr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", c.name, operation, err)
	}
	return nil
}
