package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveResolution(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveResolution("cache-hit")
	m.ObserveResolution("cache-hit")
	m.ObserveResolution("offline-fallback")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("cache-hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("offline-fallback")))
}

func TestObserveCacheLookup(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCacheLookup("query", true)
	m.ObserveCacheLookup("query", false)
	m.ObserveCacheLookup("tip", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("query", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("query", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("tip", "miss")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveResolution("cache-hit")
	m.ObserveCacheLookup("query", true)
	m.ObserveRemoteAttempt("success")
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveRemoteAttempt("quota")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `lunacare_remote_attempts_total{result="quota"} 1`)
}
