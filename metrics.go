package peek

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the inspector.
type Metrics struct {
	eventsTotal       *prometheus.CounterVec
	classifiedTotal   *prometheus.CounterVec
	truncationsTotal  *prometheus.CounterVec
	bytesInspected    prometheus.Counter
	decodeErrors      *prometheus.CounterVec
	transportErrors   prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates a new Metrics instance with all collectors registered.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peek",
			Name:      "events_total",
			Help:      "Total number of flow events processed.",
		}, []string{"direction"}),

		classifiedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peek",
			Name:      "bodies_classified_total",
			Help:      "Total number of bodies classified, by result.",
		}, []string{"class"}),

		truncationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peek",
			Name:      "render_truncations_total",
			Help:      "Number of body renders cut at the display limit.",
		}, []string{"renderer"}),

		bytesInspected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "peek",
			Name:      "bytes_inspected_total",
			Help:      "Total body bytes handed to the inspector.",
		}),

		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peek",
			Name:      "decode_errors_total",
			Help:      "Number of content-encoding decode failures.",
		}, []string{"encoding"}),

		transportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "peek",
			Name:      "transport_errors_total",
			Help:      "Number of transport-level errors reported by the host.",
		}),

		registry: reg,
	}

	reg.MustRegister(
		m.eventsTotal,
		m.classifiedTotal,
		m.truncationsTotal,
		m.bytesInspected,
		m.decodeErrors,
		m.transportErrors,
	)

	return m
}

// Handler returns an http.Handler that serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordEvent records a processed flow event.
func (m *Metrics) RecordEvent(d Direction) {
	m.eventsTotal.WithLabelValues(d.String()).Inc()
	if d == DirectionError {
		m.transportErrors.Inc()
	}
}

// RecordClassification records a body classification result.
func (m *Metrics) RecordClassification(c ContentClass) {
	m.classifiedTotal.WithLabelValues(c.String()).Inc()
}

// RecordTruncation records a render cut at the display limit.
func (m *Metrics) RecordTruncation(renderer string) {
	m.truncationsTotal.WithLabelValues(renderer).Inc()
}

// RecordBytesInspected adds to the inspected byte counter.
func (m *Metrics) RecordBytesInspected(n int) {
	m.bytesInspected.Add(float64(n))
}

// RecordDecodeError records a content-encoding decode failure.
func (m *Metrics) RecordDecodeError(encoding string) {
	m.decodeErrors.WithLabelValues(encoding).Inc()
}
