package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServer_DefaultPort(t *testing.T) {
	s := NewServer(ServerConfig{})
	assert.Equal(t, DefaultPort, s.Port())
}

func TestServer_DisabledMetricsEndpoint(t *testing.T) {
	s := NewServer(ServerConfig{Port: 9191})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/metrics")

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNoopImplementations(t *testing.T) {
	c := NewNoopCommandMetrics()
	c.RecordCommand("readall", 0, false)
	c.RecordBytes("readall", "read", 1)
	c.SetOpenHandles(1)

	h := NewNoopHTTPMetrics()
	h.RecordRequestStart()
	h.RecordRequestEnd()
	h.RecordResponse("GET", 200, 1)
	h.RecordRateLimited()
}
