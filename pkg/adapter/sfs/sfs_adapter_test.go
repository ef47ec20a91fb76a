package sfs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/snapfiles/pkg/command"
	"github.com/marmos91/snapfiles/pkg/content"
)

func newTestDispatcher(t *testing.T) *command.Dispatcher {
	t.Helper()
	r, err := content.NewResolver(afero.NewMemMapFs(), "/snap")
	require.NoError(t, err)
	return command.New(content.NewHandleCache(r, content.DefaultMaxOpenFiles), command.ServerInfo{}, nil)
}

func newTestAdapter(t *testing.T, config SFSConfig) *SFSAdapter {
	t.Helper()
	a := New(config, nil)
	a.SetDispatcher(newTestDispatcher(t))
	return a
}

func newTestServer(t *testing.T, config SFSConfig) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newTestAdapter(t, config).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string, query url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path + "?" + query.Encode())
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestEndToEndOverHTTP(t *testing.T) {
	srv := newTestServer(t, SFSConfig{})

	resp, body := get(t, srv, "/write", url.Values{"user": {"alice"}, "file": {"test.txt"}, "data": {"hello"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)

	_, body = get(t, srv, "/readall", url.Values{"user": {"alice"}, "file": {"test.txt"}})
	assert.Equal(t, "hello", body)

	_, body = get(t, srv, "/setposition", url.Values{"user": {"alice"}, "file": {"test.txt"}, "data": {"0"}, "relativeto": {"start"}})
	assert.Equal(t, "OK", body)

	_, body = get(t, srv, "/read", url.Values{"user": {"alice"}, "file": {"test.txt"}, "data": {"characters"}, "count": {"3"}})
	assert.Equal(t, "hel", body)
}

func TestResponseHeaders(t *testing.T) {
	srv := newTestServer(t, SFSConfig{})

	resp, body := get(t, srv, "/server", url.Values{"data": {"sfs_version"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, command.DefaultVersion, body)

	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"), resp.Header.Get("Content-Type"))
	assert.Equal(t, "4", resp.Header.Get("Content-Length"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	_, err := http.ParseTime(resp.Header.Get("Last-Modified"))
	assert.NoError(t, err)
}

func TestFailuresAreStatusOK(t *testing.T) {
	srv := newTestServer(t, SFSConfig{})

	resp, body := get(t, srv, "/explode", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ERROR: invalid command explode", body)

	resp, body = get(t, srv, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ERROR: invalid command ", body)

	_, body = get(t, srv, "/readall", nil)
	assert.Equal(t, "ERROR: no filename", body)

	resp, body = get(t, srv, "/a/b", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ERROR: invalid command a/b", body)

	resp, body = get(t, srv, "/readall/", url.Values{"file": {"x.txt"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ERROR: invalid command readall/", body)

	_, body = get(t, srv, "/READALL", url.Values{"file": {"new.txt"}})
	assert.Equal(t, "", body)
}

func TestHeadRunsCommand(t *testing.T) {
	srv := newTestServer(t, SFSConfig{})

	req, err := http.NewRequest(http.MethodHead, srv.URL+"/write?file=head.txt&data=abc", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2", resp.Header.Get("Content-Length"))

	_, body := get(t, srv, "/readall", url.Values{"file": {"head.txt"}})
	assert.Equal(t, "abc", body)
}

func TestUnsupportedMethod(t *testing.T) {
	srv := newTestServer(t, SFSConfig{})

	resp, err := http.Post(srv.URL+"/write?file=a.txt&data=x", "text/plain", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	a := newTestAdapter(t, SFSConfig{RateLimit: RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 2}})

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/server?data=sfs_version", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1000"))
}

func TestConcurrentRequestsShareCursor(t *testing.T) {
	srv := newTestServer(t, SFSConfig{})

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Get(srv.URL + "/write?file=shared.txt&data=ab")
			if assert.NoError(t, err) {
				_ = resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	_, body := get(t, srv, "/getposition", url.Values{"file": {"shared.txt"}})
	assert.Equal(t, "40", body)
}

func TestConfigDefaults(t *testing.T) {
	a := New(SFSConfig{}, nil)

	assert.Equal(t, DefaultPort, a.Port())
	assert.Equal(t, "SFS", a.Protocol())
	assert.Equal(t, 30*time.Second, a.config.ShutdownTimeout)
	assert.Equal(t, 2*time.Minute, a.config.IdleTimeout)
}

func TestConfigValidation(t *testing.T) {
	assert.Panics(t, func() { New(SFSConfig{Port: 70000}, nil) })
	assert.Panics(t, func() { New(SFSConfig{ReadTimeout: -time.Second}, nil) })
	assert.Panics(t, func() { New(SFSConfig{RateLimit: RateLimitConfig{Enabled: true}}, nil) })
}

func TestServeAndStop(t *testing.T) {
	a := New(SFSConfig{BindAddress: "127.0.0.1", MetricsLogInterval: -1}, nil)
	a.config.Port = 0
	a.SetDispatcher(newTestDispatcher(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	addr := a.Addr(waitCtx)
	require.NotNil(t, addr)

	resp, err := http.Get("http://" + addr.String() + "/server?data=sfs_version")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, command.DefaultVersion, string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	assert.NoError(t, a.Stop(context.Background()))
}

func TestServeWithoutDispatcher(t *testing.T) {
	a := New(SFSConfig{}, nil)
	assert.Error(t, a.Serve(context.Background()))
}
