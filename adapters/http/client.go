// Package http is the content API client. It fetches records, turns them into
// schema-shaped values and resolves relations.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mimsy-cms/mimsy/adapters/metrics"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 << 20

// Client talks to the content API.
type Client struct {
	client  *http.Client
	baseURL *url.URL
	token   string
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// Config contains configuration for the client.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	Token           string
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Timeout and pool
// settings of Config are then ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records request and relation metrics on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a content API client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must use http or https", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns == 0 {
		maxIdleConns = 100
	}

	idleConnTimeout := cfg.IdleConnTimeout
	if idleConnTimeout == 0 {
		idleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConns,
		IdleConnTimeout:     idleConnTimeout,
	}

	c := &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL: baseURL,
		token:   cfg.Token,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Close releases idle connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// get fetches path segments below the base URL and decodes the JSON body
// into out. Numbers decode as json.Number when out holds interfaces.
func (c *Client) get(ctx context.Context, out any, segments ...string) error {
	start := time.Now()
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	target := c.baseURL.JoinPath(escaped...)
	resource := metrics.Resource(target.Path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if c.metrics != nil {
		c.metrics.RequestsInFlight.Inc()
		defer c.metrics.RequestsInFlight.Dec()
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.observe(resource, 0, start, "transport")
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		c.observe(resource, resp.StatusCode, start, "read")
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Str("url", target.String()).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("content API request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(resource, resp.StatusCode, start, "status")
		return &StatusError{
			Method:     http.MethodGet,
			URL:        target.String(),
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		c.observe(resource, resp.StatusCode, start, "decode")
		return fmt.Errorf("decode %s: %w", target.Path, err)
	}

	c.observe(resource, resp.StatusCode, start, "")
	return nil
}

func (c *Client) observe(resource string, status int, start time.Time, errType string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RequestsTotal.WithLabelValues(resource, metrics.StatusClass(status)).Inc()
	c.metrics.RequestDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
	if errType != "" {
		c.metrics.RequestErrors.WithLabelValues(errType).Inc()
	}
}
