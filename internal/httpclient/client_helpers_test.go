package httpclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient builds a client from cfg, or the defaults, and closes it
// when the test ends.
func newTestClient(t *testing.T, cfg ...*Config) *Client {
	t.Helper()
	c := DefaultConfig()
	if len(cfg) > 0 {
		c = *cfg[0]
	}
	client := New(&c)
	t.Cleanup(client.Close)
	return client
}

func serveFunc(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// drain consumes and closes a response body so the connection is reused.
func drain(t *testing.T, resp *http.Response) {
	t.Helper()
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	if err := resp.Body.Close(); err != nil {
		t.Logf("closing response body: %v", err)
	}
}
