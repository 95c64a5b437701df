package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/brisk/internal/adapters/metrics"
)

func TestMetrics_Counters(t *testing.T) {
	m := metrics.New()

	m.ObserveRequest("static", 200)
	m.ObserveRequest("static", 200)
	m.ObserveRequest("proxy", 502)
	m.ObserveProxyError("/rest")
	m.ObserveReload(3)
	m.SetClients(2)
	m.ObserveDroppedClient()
	m.ObserveTaskRun("stylus", nil)
	m.ObserveTaskRun("jshint", errors.New("lint"))

	count, err := testutil.GatherAndCount(m.Registry(),
		"brisk_devserver_requests_total",
		"brisk_devserver_proxy_errors_total",
		"brisk_livereload_notifications_total",
		"brisk_livereload_clients",
		"brisk_livereload_dropped_clients_total",
		"brisk_watch_task_runs_total",
	)
	require.NoError(t, err)
	// requests: 2 series, proxy errors: 1, reloads: 1, clients: 1, dropped: 1, task runs: 2.
	assert.Equal(t, 8, count)
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.ObserveReload(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "brisk_livereload_notifications_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
