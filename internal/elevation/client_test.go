package elevation

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/httpclient"
	"github.com/photoscale/photoscale/internal/logger"
	"github.com/photoscale/photoscale/internal/observability/metrics"
)

const testEndpoint = "https://elevation.test/api/v1/lookup"

func newMockedClient(t *testing.T, cfg Config) (*Client, *httpmock.MockTransport) {
	t.Helper()

	hc := httpclient.New(nil)
	transport := httpmock.NewMockTransport()
	hc.StdClient().Transport = transport

	m, err := metrics.NewElevationMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	if cfg.Endpoint == "" {
		cfg.Endpoint = testEndpoint
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 1000
		cfg.Burst = 100
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	c, err := NewClient(cfg, hc, WithLogger(logger.NewDiscardLogger()), WithMetrics(m))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, transport
}

func TestGetElevationOpenElevationShape(t *testing.T) {
	t.Parallel()

	c, transport := newMockedClient(t, Config{})
	transport.RegisterResponder(http.MethodGet, testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "60.169900,24.938400", req.URL.Query().Get("locations"))
			return httpmock.NewStringResponse(http.StatusOK,
				`{"results":[{"latitude":60.1699,"longitude":24.9384,"elevation":17.0}]}`), nil
		})

	v := c.GetElevation(t.Context(), 60.1699, 24.9384)
	require.NotNil(t, v)
	assert.InDelta(t, 17.0, *v, 0)
}

func TestGetElevationOpenMeteoShape(t *testing.T) {
	t.Parallel()

	c, transport := newMockedClient(t, Config{})
	transport.RegisterResponder(http.MethodGet, testEndpoint,
		httpmock.NewStringResponder(http.StatusOK, `{"elevation":[412.5]}`))

	v := c.GetElevation(t.Context(), 46.0, 7.0)
	require.NotNil(t, v)
	assert.InDelta(t, 412.5, *v, 0)
}

func TestGetElevationCaches(t *testing.T) {
	t.Parallel()

	c, transport := newMockedClient(t, Config{})
	transport.RegisterResponder(http.MethodGet, testEndpoint,
		httpmock.NewStringResponder(http.StatusOK, `{"results":[{"elevation":5}]}`))

	for range 3 {
		require.NotNil(t, c.GetElevation(t.Context(), 10.00001, 20.00001))
	}
	// Rounded to the same cache key.
	require.NotNil(t, c.GetElevation(t.Context(), 10.00002, 20.00002))
	assert.Equal(t, 1, transport.GetTotalCallCount())

	c.Flush()
	require.NotNil(t, c.GetElevation(t.Context(), 10.00001, 20.00001))
	assert.Equal(t, 2, transport.GetTotalCallCount())
}

func TestGetElevationCollapsesConcurrentLookups(t *testing.T) {
	t.Parallel()

	c, transport := newMockedClient(t, Config{})
	release := make(chan struct{})
	transport.RegisterResponder(http.MethodGet, testEndpoint,
		func(*http.Request) (*http.Response, error) {
			<-release
			return httpmock.NewStringResponse(http.StatusOK, `{"results":[{"elevation":99}]}`), nil
		})

	var wg sync.WaitGroup
	results := make(chan *float64, 8)
	for range 8 {
		wg.Go(func() {
			results <- c.GetElevation(t.Context(), 1.5, 2.5)
		})
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for v := range results {
		require.NotNil(t, v)
		assert.InDelta(t, 99, *v, 0)
	}
	assert.LessOrEqual(t, transport.GetTotalCallCount(), 2)
}

func TestGetElevationRetriesServerErrors(t *testing.T) {
	t.Parallel()

	c, transport := newMockedClient(t, Config{MaxRetries: 2})
	transport.RegisterResponder(http.MethodGet, testEndpoint,
		httpmock.ResponderFromMultipleResponses([]*http.Response{
			httpmock.NewStringResponse(http.StatusBadGateway, "upstream down"),
			httpmock.NewStringResponse(http.StatusOK, `{"results":[{"elevation":3.25}]}`),
		}))

	v := c.GetElevation(t.Context(), 0, 0)
	require.NotNil(t, v)
	assert.InDelta(t, 3.25, *v, 0)
	assert.Equal(t, 2, transport.GetTotalCallCount())
}

func TestLookupFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		category errors.ErrorCategory
		calls    int
	}{
		{"client error not retried", http.StatusBadRequest, "bad", errors.CategoryHTTP, 1},
		{"server error exhausts retries", http.StatusServiceUnavailable, "", errors.CategoryHTTP, 2},
		{"malformed body", http.StatusOK, "<html>", errors.CategoryFileParsing, 1},
		{"missing elevation", http.StatusOK, `{"results":[]}`, errors.CategoryFileParsing, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, transport := newMockedClient(t, Config{MaxRetries: 1})
			transport.RegisterResponder(http.MethodGet, testEndpoint,
				httpmock.NewStringResponder(tt.status, tt.body))

			_, err := c.Lookup(t.Context(), 12, 34)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
			assert.Equal(t, tt.calls, transport.GetTotalCallCount())
			assert.Nil(t, c.GetElevation(t.Context(), 12, 34), "failures are reported as nil")
		})
	}
}

func TestLookupRejectsInvalidCoordinates(t *testing.T) {
	t.Parallel()

	c, transport := newMockedClient(t, Config{})
	_, err := c.Lookup(t.Context(), 91, 0)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, 0, transport.GetTotalCallCount())
}

func TestNewClientValidatesEndpoint(t *testing.T) {
	t.Parallel()

	for _, endpoint := range []string{"", "not a url", "/relative/only"} {
		_, err := NewClient(Config{Endpoint: endpoint}, nil)
		require.Error(t, err, "endpoint %q", endpoint)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	}
}
