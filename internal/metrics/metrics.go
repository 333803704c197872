package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vovakirdan/whiteboard-server/internal/core"
)

const namespace = "whiteboard"

// Metrics records relay activity as Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	sessions     prometheus.Gauge
	rooms        prometheus.Gauge
	relayed      *prometheus.CounterVec
	deliveries   *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	snapshots    *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_joined",
			Help:      "Websocket sessions currently joined to a room.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Rooms with at least one participant.",
		}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_relayed_total",
			Help:      "Events fanned out, by kind.",
		}, []string{"kind"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_deliveries_total",
			Help:      "Per-recipient deliveries of relayed events, by kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events discarded, by reason.",
		}, []string{"reason"}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Canvas snapshot saves, by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method and status.",
		}, []string{"method", "status"}),
	}

	reg.MustRegister(
		m.sessions,
		m.rooms,
		m.relayed,
		m.deliveries,
		m.dropped,
		m.snapshots,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) SessionJoined() { m.sessions.Inc() }

func (m *Metrics) SessionLeft() { m.sessions.Dec() }

func (m *Metrics) RoomsActive(n int) { m.rooms.Set(float64(n)) }

func (m *Metrics) EventRelayed(kind core.EventKind, recipients int) {
	m.relayed.WithLabelValues(string(kind)).Inc()
	m.deliveries.WithLabelValues(string(kind)).Add(float64(recipients))
}

func (m *Metrics) EventDropped(reason string) {
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) SnapshotSaved(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.snapshots.WithLabelValues(result).Inc()
}

// HTTPRequest counts a served request.
func (m *Metrics) HTTPRequest(method string, status int) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

var _ core.Recorder = (*Metrics)(nil)
