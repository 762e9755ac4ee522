package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dbmetrics/pg_exporter/internal/coordinator"
	"github.com/stretchr/testify/assert"
)

// Test_handleRoot_exactBody covers spec §8 scenario 6: GET / must return
// the exact literal body, not merely contain it.
func Test_handleRoot_exactBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()

	mux := http.NewServeMux()
	mux.Handle("/", handleRoot())
	mux.ServeHTTP(res, req)

	assert.Equal(t, http.StatusOK, res.Code)

	body, err := io.ReadAll(res.Body)
	assert.NoError(t, err)
	assert.Equal(t, rootBody, string(body))
}

// Test_handleRoot_unknownPathIs404 covers spec §6: any path other than "/"
// (and the configured endpoint) returns 404.
func Test_handleRoot_unknownPathIs404(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
	res := httptest.NewRecorder()

	mux := http.NewServeMux()
	mux.Handle("/", handleRoot())
	mux.ServeHTTP(res, req)

	assert.Equal(t, http.StatusNotFound, res.Code)
}

func Test_basicAuth(t *testing.T) {
	testcases := []struct {
		name   string
		user   string
		pass   string
		status int
	}{
		{name: "valid", user: "user", pass: "pass", status: http.StatusOK},
		{name: "empty creds", user: "", pass: "", status: http.StatusUnauthorized},
		{name: "invalid pass", user: "user", pass: "invalid", status: http.StatusUnauthorized},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.Handle("/", basicAuth(AuthConfig{Username: "user", Password: "pass"}, handleRoot()))

			res := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetBasicAuth(tc.user, tc.pass)
			mux.ServeHTTP(res, req)
			assert.Equal(t, tc.status, res.Code)
		})
	}
}

// TestServer_Serve_rootMetricsAndNotFound covers spec §6's whole External
// Interfaces surface against a real listener: "/" returns the static body,
// the configured endpoint returns a scrape (even with zero instances
// configured), and any other path 404s.
func TestServer_Serve_rootMetricsAndNotFound(t *testing.T) {
	coord := coordinator.New(nil, time.Second)
	srv := NewServer(ServerConfig{
		Addr:          "127.0.0.1:0",
		Endpoint:      "/metrics",
		ScrapeTimeout: time.Second,
	}, coord)

	ts := httptest.NewServer(srv.server.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.Equal(t, rootBody, string(body))

	resp2, err := http.Get(ts.URL + "/metrics")
	assert.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	resp3, err := http.Get(ts.URL + "/unknown")
	assert.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
}
