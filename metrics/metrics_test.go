package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.Read("ok", time.Millisecond)
		m.FrameAborted()
	})
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Read("ok", 60*time.Millisecond)
	m.Read("ok", 55*time.Millisecond)
	m.Read("timeout", 250*time.Millisecond)
	m.FrameAborted()

	require.Equal(t, 2.0, testutil.ToFloat64(m.reads.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.reads.WithLabelValues("timeout")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.aborted))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Contains(t, rec.Body.String(), `dht_reads_total{status="timeout"} 1`)
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.Error(t, err)
}
