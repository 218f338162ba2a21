// Package httpclient is the shared outbound HTTP client: context-aware
// requests with a default timeout, User-Agent injection, bounded response
// reads and observability hooks.
package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/photoscale/photoscale/internal/errors"
)

const (
	// DefaultTimeout applies when the request context has no deadline.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxResponseBytes bounds Fetch reads.
	DefaultMaxResponseBytes int64 = 1 << 20

	defaultMaxIdleConns        = 20
	defaultMaxIdleConnsPerHost = 4
	defaultIdleConnTimeout     = 90 * time.Second

	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultResponseHeaderTimeout = 10 * time.Second
	defaultDialTimeout           = 10 * time.Second
	defaultDialKeepAlive         = 30 * time.Second

	defaultUserAgent = "photoscale"
)

// Client wraps http.Client. Safe for concurrent use.
type Client struct {
	client           *http.Client
	defaultTimeout   time.Duration
	userAgent        string
	maxResponseBytes int64

	hookMu        sync.RWMutex
	beforeRequest func(*http.Request)
	afterResponse func(*http.Request, *http.Response, error)
}

// Config holds configuration for creating an HTTP client.
type Config struct {
	// DefaultTimeout is applied if the request context has no deadline.
	DefaultTimeout time.Duration

	// UserAgent is added to requests that do not set one.
	UserAgent string

	// MaxResponseBytes caps the body size read by Fetch.
	MaxResponseBytes int64

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:      DefaultTimeout,
		UserAgent:           defaultUserAgent,
		MaxResponseBytes:    DefaultMaxResponseBytes,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
	}
}

// New creates a client. A nil cfg means DefaultConfig; zero fields take
// their defaults and the caller's value is not mutated.
func New(cfg *Config) *Client {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.DefaultTimeout > 0 {
			c.DefaultTimeout = cfg.DefaultTimeout
		}
		if cfg.UserAgent != "" {
			c.UserAgent = cfg.UserAgent
		}
		if cfg.MaxResponseBytes > 0 {
			c.MaxResponseBytes = cfg.MaxResponseBytes
		}
		if cfg.MaxIdleConns > 0 {
			c.MaxIdleConns = cfg.MaxIdleConns
		}
		if cfg.MaxIdleConnsPerHost > 0 {
			c.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
		}
		if cfg.IdleConnTimeout > 0 {
			c.IdleConnTimeout = cfg.IdleConnTimeout
		}
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: defaultDialKeepAlive,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          c.MaxIdleConns,
		MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
		IdleConnTimeout:       c.IdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
	}

	return &Client{
		// No client-level timeout; Do applies one through the context.
		client:           &http.Client{Transport: transport},
		defaultTimeout:   c.DefaultTimeout,
		userAgent:        c.UserAgent,
		maxResponseBytes: c.MaxResponseBytes,
	}
}

// StdClient exposes the underlying http.Client, e.g. for transport mocking.
func (c *Client) StdClient() *http.Client {
	return c.client
}

// Do executes req under ctx. Callers that stream the body own its deadline;
// Fetch applies the default timeout for them. The response body must be
// closed by the caller if err is nil.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.Newf("nil request").
			Component("httpclient").
			Category(errors.CategoryValidation).
			Build()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req = req.WithContext(ctx)
	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.hookMu.RLock()
	before, after := c.beforeRequest, c.afterResponse
	c.hookMu.RUnlock()

	if before != nil {
		before(req)
	}
	resp, err := c.client.Do(req)
	if after != nil {
		after(req, resp, err)
	}
	return resp, err
}

// Fetch GETs url and returns the status code and body, read up to the
// configured limit. Non-2xx statuses are not errors; callers decide.
func (c *Client) Fetch(ctx context.Context, url string) (int, []byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && c.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, nil, errors.New(err).
			Component("httpclient").
			Category(errors.CategoryValidation).
			Context("operation", "build_request").
			Build()
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.Do(ctx, req)
	if err != nil {
		category := errors.CategoryNetwork
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			category = errors.CategoryTimeout
		case errors.Is(err, context.Canceled):
			category = errors.CategoryCancellation
		}
		return 0, nil, errors.New(err).
			Component("httpclient").
			Category(category).
			NetworkContext(url, c.defaultTimeout).
			Timing("http_get", time.Since(start)).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, errors.New(err).
			Component("httpclient").
			Category(errors.CategoryNetwork).
			NetworkContext(url, c.defaultTimeout).
			Context("operation", "read_body").
			Build()
	}
	return resp.StatusCode, body, nil
}

// SetBeforeRequestHook sets a function called before each request.
func (c *Client) SetBeforeRequestHook(fn func(*http.Request)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.beforeRequest = fn
}

// SetAfterResponseHook sets a function called after each request with the
// response or error.
func (c *Client) SetAfterResponseHook(fn func(*http.Request, *http.Response, error)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.afterResponse = fn
}

// Close releases idle connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
