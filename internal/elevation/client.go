// Package elevation queries a ground elevation web service. It is an
// optional secondary ground reference: every failure is logged and reported
// as "no value" so the caller moves on to its next altitude source.
package elevation

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/httpclient"
	"github.com/photoscale/photoscale/internal/logger"
	"github.com/photoscale/photoscale/internal/observability/metrics"
)

// Config controls the elevation client.
type Config struct {
	// Endpoint is the lookup URL; the query parameter locations=lat,lon is appended.
	Endpoint          string
	Timeout           time.Duration
	CacheTTL          time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	RetryDelay        time.Duration
}

// DefaultConfig returns settings for the public Open-Elevation service.
func DefaultConfig() Config {
	return Config{
		Endpoint:          "https://api.open-elevation.com/api/v1/lookup",
		Timeout:           5 * time.Second,
		CacheTTL:          24 * time.Hour,
		RequestsPerSecond: 1,
		Burst:             2,
		MaxRetries:        2,
		RetryDelay:        300 * time.Millisecond,
	}
}

// Client looks up ground elevation in metres above sea level.
type Client struct {
	config  Config
	http    *httpclient.Client
	cache   *cache.Cache
	group   singleflight.Group
	limiter *rate.Limiter
	log     logger.Logger
	metrics *metrics.ElevationMetrics
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records request outcomes and cache lookups.
func WithMetrics(m *metrics.ElevationMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient validates config and builds a client. A nil hc gets a private
// httpclient with the configured timeout.
func NewClient(config Config, hc *httpclient.Client, opts ...Option) (*Client, error) {
	defaults := DefaultConfig()
	if config.Endpoint == "" {
		return nil, errors.Newf("elevation endpoint is required").
			Component("elevation").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if u, err := url.Parse(config.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("invalid elevation endpoint %q", config.Endpoint).
			Component("elevation").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = defaults.Burst
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaults.RetryDelay
	}
	if hc == nil {
		hc = httpclient.New(&httpclient.Config{DefaultTimeout: config.Timeout})
	}

	c := &Client{
		config:  config,
		http:    hc,
		cache:   cache.New(config.CacheTTL, config.CacheTTL*2),
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		log:     logger.Global().Module("elevation"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetElevation returns the ground elevation at the coordinate or nil when
// it cannot be determined. It never returns an error.
func (c *Client) GetElevation(ctx context.Context, lat, lon float64) *float64 {
	v, err := c.Lookup(ctx, lat, lon)
	if err != nil {
		c.log.Warn("elevation lookup failed",
			logger.Float64("latitude", lat),
			logger.Float64("longitude", lon),
			logger.Error(err))
		return nil
	}
	return &v
}

// Lookup is GetElevation with the failure reason. Concurrent lookups of the
// same rounded coordinate share one request.
func (c *Client) Lookup(ctx context.Context, lat, lon float64) (float64, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return 0, errors.Newf("coordinate out of range").
			Component("elevation").
			Category(errors.CategoryValidation).
			Build()
	}

	key := cacheKey(lat, lon)
	if v, ok := c.cache.Get(key); ok {
		c.metrics.RecordCacheLookup(true)
		return v.(float64), nil
	}
	c.metrics.RecordCacheLookup(false)

	ch := c.group.DoChan(key, func() (any, error) {
		// Detached so one caller giving up does not fail the others.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.Timeout*time.Duration(c.config.MaxRetries+1))
		defer cancel()
		v, err := c.fetchWithRetry(fctx, lat, lon)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, v, cache.DefaultExpiration)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return 0, errors.New(ctx.Err()).
			Component("elevation").
			Category(errors.CategoryCancellation).
			Build()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(float64), nil
	}
}

func (c *Client) fetchWithRetry(ctx context.Context, lat, lon float64) (float64, error) {
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * c.config.RetryDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return 0, lastErr
			}
		}

		v, retryable, err := c.fetch(ctx, lat, lon)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !retryable {
			return 0, err
		}
		c.log.Debug("elevation request failed, retrying",
			logger.Int("attempt", attempt+1),
			logger.Int("max_retries", c.config.MaxRetries),
			logger.Error(err))
	}
	return 0, lastErr
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (float64, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, false, errors.New(err).
			Component("elevation").
			Category(errors.CategoryTimeout).
			Context("operation", "rate_limit_wait").
			Build()
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	status, body, err := c.http.Fetch(reqCtx, c.requestURL(lat, lon))
	elapsed := time.Since(start).Seconds()
	if err != nil {
		c.metrics.RecordRequest(metrics.StatusError, "0", elapsed)
		return 0, true, err
	}
	code := strconv.Itoa(status)
	if status < 200 || status > 299 {
		c.metrics.RecordRequest(metrics.StatusError, code, elapsed)
		retryable := status == 429 || status >= 500
		return 0, retryable, errors.Newf("elevation service returned HTTP %d", status).
			Component("elevation").
			Category(errors.CategoryHTTP).
			Context("status_code", status).
			Build()
	}

	v, err := parseElevation(body)
	if err != nil {
		c.metrics.RecordRequest(metrics.StatusError, code, elapsed)
		return 0, false, err
	}
	c.metrics.RecordRequest(metrics.StatusSuccess, code, elapsed)
	return v, false, nil
}

func (c *Client) requestURL(lat, lon float64) string {
	u, _ := url.Parse(c.config.Endpoint)
	q := u.Query()
	q.Set("locations", fmt.Sprintf("%.6f,%.6f", lat, lon))
	u.RawQuery = q.Encode()
	return u.String()
}

// parseElevation accepts the Open-Elevation shape
// {"results":[{"elevation":12.0}]} and the Open-Meteo shape {"elevation":[12.0]}.
func parseElevation(body []byte) (float64, error) {
	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return 0, errors.New(err).
			Component("elevation").
			Category(errors.CategoryFileParsing).
			Build()
	}

	if results, err := obj.GetObjectArray("results"); err == nil && len(results) > 0 {
		if v, err := results[0].GetFloat64("elevation"); err == nil {
			return v, nil
		}
	}
	if values, err := obj.GetFloat64Array("elevation"); err == nil && len(values) > 0 {
		return values[0], nil
	}

	return 0, errors.Newf("elevation missing from response").
		Component("elevation").
		Category(errors.CategoryFileParsing).
		Build()
}

// cacheKey rounds to four decimals, roughly 11 m at the equator.
func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

// Flush drops all cached elevations.
func (c *Client) Flush() {
	c.cache.Flush()
}

// Close releases the HTTP client's idle connections.
func (c *Client) Close() {
	c.http.Close()
}
