package server

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/orgmatch/internal/observability"
	"github.com/namelens/orgmatch/internal/server/handlers"
)

// isPermissionError normalizes OS-specific permission errors (macOS/Linux/BSD)
// so we can gracefully skip when loopback sockets are blocked.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"permission denied", "operation not permitted", "not permitted"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// initMetricsOrSkip starts the exporter and tears down global telemetry
// state when the test ends.
func initMetricsOrSkip(t *testing.T) {
	t.Helper()
	if err := observability.InitMetrics("test", 0, "test"); err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping metrics tests due to sandbox permissions: %v", err)
		}
		require.NoError(t, err)
	}
	t.Cleanup(func() {
		if observability.PrometheusExporter != nil {
			_ = observability.PrometheusExporter.Stop()
			observability.PrometheusExporter = nil
		}
		observability.TelemetrySystem = nil
	})
}

// startLoopback binds to IPv4 loopback explicitly and skips when the
// sandbox refuses to open sockets.
func startLoopback(t *testing.T, handler http.Handler) (*httptest.Server, *http.Client) {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping server setup: %v", err)
		}
		require.NoError(t, err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts, ts.Client()
}

func TestMetricsEndpointReportsMatchTraffic(t *testing.T) {
	require.NoError(t, observability.InitServerLogger("test", "info", "test", ""))
	initMetricsOrSkip(t)
	handlers.InitHealthManager("test")

	ts, client := startLoopback(t, newTestServer().Handler())

	const numRequests = 20
	const numWorkers = 4

	requests := make(chan int, numRequests)
	for i := range numRequests {
		requests <- i
	}
	close(requests)

	start := time.Now()
	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range requests {
				var resp *http.Response
				var err error
				if n%2 == 0 {
					resp, err = client.Post(ts.URL+"/v1/match", "application/json", strings.NewReader(
						`{"queries":[{"id":"q1","name":"Globex Systemz"}],"dictionary":[{"id":"1","name":"Globex Systems"},{"id":"2","name":"Initech"}]}`))
				} else {
					resp, err = client.Get(ts.URL + "/health")
				}
				if err == nil {
					_ = resp.Body.Close()
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	content := string(body)
	assert.Contains(t, content, "http_requests_total", "Should have HTTP request metrics")
	assert.Contains(t, content, "stage_matches", "Should have cascade stage metrics")
	assert.Less(t, elapsed, 10*time.Second, "Load test should complete in reasonable time")
}
