package devserver_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/brisk/internal/adapters/devserver"
	"go.trai.ch/brisk/internal/adapters/metrics"
	"go.trai.ch/brisk/internal/adapters/netutil"
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func quietLogger(t *testing.T) *mocks.MockLogger {
	t.Helper()
	logger := mocks.NewMockLogger(gomock.NewController(t))
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	return logger
}

type upstreamRequest struct {
	method string
	uri    string
	body   string
	header string
}

// newTestServer starts the dev server chain over a temporary project whose
// proxy root points at a recording upstream.
func newTestServer(t *testing.T, logger *mocks.MockLogger, m *metrics.Metrics) (string, *httptest.Server, chan upstreamRequest) {
	t.Helper()
	dir := t.TempDir()

	seen := make(chan upstreamRequest, 4)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen <- upstreamRequest{method: r.Method, uri: r.URL.RequestURI(), body: string(body), header: r.Header.Get("X-Test")}
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "from upstream")
	}))
	t.Cleanup(upstream.Close)

	cfg := domain.DefaultConfig()
	cfg.Proxy.Root = upstream.URL

	srv, err := devserver.New(dir, cfg, logger, m)
	require.NoError(t, err)

	front := httptest.NewServer(srv.Handler())
	t.Cleanup(front.Close)
	return dir, front, seen
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // test server URL
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServer_ProxyPreservesMethodAndBody(t *testing.T) {
	_, front, seen := newTestServer(t, quietLogger(t), nil)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost,
		front.URL+"/aperture/items?limit=2", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, err)
	req.Header.Set("X-Test", "kept")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "from upstream", string(body))
	assert.Equal(t, "yes", resp.Header.Get("X-Upstream"))

	got := <-seen
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/aperture/items?limit=2", got.uri)
	assert.JSONEq(t, `{"name":"x"}`, got.body)
	assert.Equal(t, "kept", got.header)
}

func TestServer_SecondRouteMatches(t *testing.T) {
	_, front, seen := newTestServer(t, quietLogger(t), nil)

	resp, _ := get(t, front.URL+"/rest/users")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "/rest/users", (<-seen).uri)
}

func TestServer_UnmappedFallsThrough(t *testing.T) {
	dir, front, seen := newTestServer(t, quietLogger(t), nil)

	resp, _ := get(t, front.URL+"/unmapped")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	writeFile(t, filepath.Join(dir, "app", "unmapped"), "static")
	resp, body := get(t, front.URL+"/unmapped")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "static", body)
	assert.Empty(t, seen)
}

func TestServer_SourceBeatsTemp(t *testing.T) {
	dir, front, _ := newTestServer(t, quietLogger(t), nil)
	writeFile(t, filepath.Join(dir, "app", "styles", "main.css"), "source")
	writeFile(t, filepath.Join(dir, ".tmp", "styles", "main.css"), "compiled")
	writeFile(t, filepath.Join(dir, ".tmp", "styles", "only.css"), "temp only")

	_, body := get(t, front.URL+"/styles/main.css")
	assert.Equal(t, "source", body)

	_, body = get(t, front.URL+"/styles/only.css")
	assert.Equal(t, "temp only", body)
}

func TestServer_InjectsLivereloadSnippet(t *testing.T) {
	dir, front, _ := newTestServer(t, quietLogger(t), nil)
	writeFile(t, filepath.Join(dir, "app", "index.html"), "<html><body><h1>hi</h1></body></html>")

	resp, body := get(t, front.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	want := `<html><body><h1>hi</h1><script src="//127.0.0.1:35729/livereload.js?snipver=1"></script></body></html>`
	assert.Equal(t, want, body)
	assert.Equal(t, strconv.Itoa(len(want)), resp.Header.Get("Content-Length"))
}

func TestServer_RangeRequestIsNotRewritten(t *testing.T) {
	dir, front, _ := newTestServer(t, quietLogger(t), nil)
	writeFile(t, filepath.Join(dir, "app", "index.html"), "<html><body><h1>hi</h1></body></html>")

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, front.URL+"/index.html", nil)
	require.NoError(t, err)
	req.Header.Set("Range", "bytes=0-5")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "<html>", string(body))
	assert.Equal(t, "bytes 0-5/37", resp.Header.Get("Content-Range"))
}

func TestServer_ProxyForwardsStatusAfterEarlyHints(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Link", "</styles/main.css>; rel=preload; as=style")
		w.WriteHeader(http.StatusEarlyHints)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"missing"}`)
	}))
	t.Cleanup(upstream.Close)

	cfg := domain.DefaultConfig()
	cfg.Proxy.Root = upstream.URL
	m := metrics.New()
	srv, err := devserver.New(t.TempDir(), cfg, quietLogger(t), m)
	require.NoError(t, err)
	front := httptest.NewServer(srv.Handler())
	t.Cleanup(front.Close)

	resp, body := get(t, front.URL+"/rest/items")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"missing"}`, body)

	want := `
# HELP brisk_devserver_requests_total Dev server requests by handling stage and status code.
# TYPE brisk_devserver_requests_total counter
brisk_devserver_requests_total{code="404",stage="proxy"} 1
`
	assert.Eventually(t, func() bool {
		return testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "brisk_devserver_requests_total") == nil
	}, time.Second, 10*time.Millisecond)
}

func TestServer_DoesNotTouchOtherTypes(t *testing.T) {
	dir, front, _ := newTestServer(t, quietLogger(t), nil)
	writeFile(t, filepath.Join(dir, "app", "scripts", "main.js"), "var body = '</body>';")

	_, body := get(t, front.URL+"/scripts/main.js")
	assert.Equal(t, "var body = '</body>';", body)
}

func TestServer_DirectoryRedirectAndListing(t *testing.T) {
	dir, front, _ := newTestServer(t, quietLogger(t), nil)
	writeFile(t, filepath.Join(dir, "app", "images", "logo.png"), "png")
	writeFile(t, filepath.Join(dir, "app", "images", ".hidden"), "secret")
	writeFile(t, filepath.Join(dir, "app", "images", "icons", "a.svg"), "svg")

	resp, body := get(t, front.URL+"/images/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<a href="logo.png">logo.png</a>`)
	assert.Contains(t, body, `<a href="icons/">icons/</a>`)
	assert.NotContains(t, body, ".hidden")
	// Listings are HTML, so they get the snippet too.
	assert.Contains(t, body, "livereload.js")

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	redirect, err := client.Get(front.URL + "/images") //nolint:noctx // test server URL
	require.NoError(t, err)
	_ = redirect.Body.Close()
	assert.Equal(t, http.StatusMovedPermanently, redirect.StatusCode)
	assert.Equal(t, "/images/", redirect.Header.Get("Location"))
}

func TestServer_DotfilesNotServed(t *testing.T) {
	dir, front, _ := newTestServer(t, quietLogger(t), nil)
	writeFile(t, filepath.Join(dir, "app", ".htaccess"), "deny")

	resp, _ := get(t, front.URL+"/.htaccess")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_UnreachableUpstream(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn("proxy error for /rest/items").Times(1)

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	cfg := domain.DefaultConfig()
	cfg.Proxy.Root = deadURL
	m := metrics.New()

	srv, err := devserver.New(t.TempDir(), cfg, logger, m)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rest/items", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	count, err := testutil.GatherAndCount(m.Registry(), "brisk_devserver_proxy_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestServer_ListenLogsRoutesThenStarts(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()

	cfg := domain.DefaultConfig()
	cfg.Port = freePort(t)

	first := logger.EXPECT().Info("Proxy: /aperture to http://localhost:8080/aperture")
	second := logger.EXPECT().Info("Proxy: /rest to http://localhost:8080/rest").After(first)
	logger.EXPECT().Info("Started dev server on http://localhost:" + strconv.Itoa(cfg.Port)).After(second)

	srv, err := devserver.New(t.TempDir(), cfg, logger, nil)
	require.NoError(t, err)
	require.NoError(t, srv.Listen(t.Context()))
	assert.Equal(t, cfg.Port, srv.Port())

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	resp, _ := get(t, "http://127.0.0.1:"+strconv.Itoa(cfg.Port)+"/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
}

func TestServer_PortInUse(t *testing.T) {
	blocker, err := netutil.Listen(t.Context(), 0, "blocker")
	require.NoError(t, err)
	defer func() { _ = blocker.Close() }()

	cfg := domain.DefaultConfig()
	cfg.Port = netutil.Port(blocker)

	srv, err := devserver.New(t.TempDir(), cfg, quietLogger(t), nil)
	require.NoError(t, err)

	err = srv.Listen(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPortInUse)

	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, cfg.Port, zErr.Metadata()["port"])
}

func TestServer_ServeBeforeListen(t *testing.T) {
	srv, err := devserver.New(t.TempDir(), domain.DefaultConfig(), quietLogger(t), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, srv.Serve(t.Context()), domain.ErrServerFailed)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Proxy.Paths = []string{"rest"}

	_, err := devserver.New(t.TempDir(), cfg, quietLogger(t), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := netutil.Listen(t.Context(), 0, "free port")
	require.NoError(t, err)
	port := netutil.Port(ln)
	require.NoError(t, ln.Close())
	return port
}
