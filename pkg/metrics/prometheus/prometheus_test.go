package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCommandMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newCommandMetrics(reg)

	m.RecordCommand("readall", 2*time.Millisecond, false)
	m.RecordCommand("readall", time.Millisecond, true)
	m.RecordCommand("write", time.Millisecond, false)
	m.RecordBytes("write", "write", 5)
	m.RecordBytes("write", "write", 7)
	m.SetOpenHandles(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("readall", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("readall", "failure")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.bytesTransferred.WithLabelValues("write", "write")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.openHandles))
	assert.Equal(t, 2, testutil.CollectAndCount(m.commandDuration))
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newHTTPMetrics(reg)

	m.RecordRequestStart()
	m.RecordRequestStart()
	m.RecordRequestEnd()
	m.RecordResponse("GET", 200, 2)
	m.RecordResponse("GET", 200, 10)
	m.RecordResponse("GET", 429, 0)
	m.RecordRateLimited()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsInFlight))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.responsesTotal.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.responsesTotal.WithLabelValues("GET", "429")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))
}

func TestConstructors_DisabledReturnNoop(t *testing.T) {
	// The global registry is never initialized in this package's tests.
	assert.NotNil(t, NewCommandMetrics())
	assert.NotNil(t, NewHTTPMetrics())
	_, isProm := NewCommandMetrics().(*commandMetrics)
	assert.False(t, isProm)
}
