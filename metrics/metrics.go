package metrics

// Prometheus instrumentation for sensor reads.  Only outcomes and
// timings are exported, never the measured values.  A nil *Metrics is
// valid and records nothing.

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reads    *prometheus.CounterVec
	aborted  prometheus.Counter
	duration prometheus.Histogram
	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg.  A
// *prometheus.Registry also serves as the gatherer for Handler.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dht_reads_total",
			Help: "Total sensor read attempts by outcome.",
		}, []string{"status"}),
		aborted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dht_frames_aborted_total",
			Help: "Frames dropped because of a malformed pulse.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dht_read_duration_seconds",
			Help:    "Time from trigger to result for each read.",
			Buckets: []float64{.01, .025, .05, .075, .1, .15, .2, .25, .3},
		}),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, c := range []prometheus.Collector{m.reads, m.aborted, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m, nil
}

// Read records the outcome of one read attempt.
func (m *Metrics) Read(status string, took time.Duration) {
	if m == nil {
		return
	}
	m.reads.WithLabelValues(status).Inc()
	m.duration.Observe(took.Seconds())
}

// FrameAborted counts a partial frame dropped mid-receive.
func (m *Metrics) FrameAborted() {
	if m == nil {
		return
	}
	m.aborted.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
