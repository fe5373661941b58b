package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rl1809/gomarket-cart/internal/port"
)

const namespace = "gomarket"

// Metrics records cart store activity on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	MutationsTotal    *prometheus.CounterVec
	SnapshotWrites    *prometheus.CounterVec
	SnapshotWriteTime prometheus.Histogram
	SnapshotsDropped  prometheus.Counter
	CartLines         prometheus.Gauge
}

var _ port.Recorder = (*Metrics)(nil)

func New(subsystem string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		MutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "mutations_total",
			Help:      "Cart mutations by operation",
		}, []string{"op"}),
		SnapshotWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "snapshot_writes_total",
			Help:      "Durable snapshot writes by result",
		}, []string{"result"}),
		SnapshotWriteTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "snapshot_write_duration_seconds",
			Help:      "Duration of a single snapshot write attempt",
			Buckets:   prometheus.DefBuckets,
		}),
		SnapshotsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "snapshots_dropped_total",
			Help:      "Pending snapshots superseded while the write queue was full",
		}),
		CartLines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cart_lines",
			Help:      "Number of distinct products in the cart",
		}),
	}

	m.registry.MustRegister(
		m.MutationsTotal,
		m.SnapshotWrites,
		m.SnapshotWriteTime,
		m.SnapshotsDropped,
		m.CartLines,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveMutation(op string) {
	m.MutationsTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveWrite(result string, elapsed time.Duration) {
	m.SnapshotWrites.WithLabelValues(result).Inc()
	if elapsed > 0 {
		m.SnapshotWriteTime.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) ObserveDrop() {
	m.SnapshotsDropped.Inc()
}

func (m *Metrics) SetCartLines(n int) {
	m.CartLines.Set(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
