package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chat_presence"

// Metrics holds all Prometheus collectors of the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	OnlineUsers      prometheus.Gauge
	OpenSessions     prometheus.Gauge
	EventsReceived   *prometheus.CounterVec
	EventsRejected   *prometheus.CounterVec
	FramesDelivered  prometheus.Counter
	FramesDropped    prometheus.Counter
	MessagesStored   prometheus.Counter
	StorageFailures  prometheus.Counter
	BreakerState     *prometheus.GaugeVec
	HandshakeFailed  prometheus.Counter
	ProcessRSSBytes  prometheus.Gauge
	ProcessCPU       prometheus.Gauge
	ProcessOpenFiles prometheus.Gauge
}

// NewMetrics registers every collector on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		OnlineUsers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "online_users",
			Help: "Users with an open authenticated session",
		}),
		OpenSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "open_sessions",
			Help: "Authenticated websocket sessions, superseded ones included until they close",
		}),
		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_received_total",
			Help: "Inbound events by name",
		}, []string{"event"}),
		EventsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_rejected_total",
			Help: "Inbound events answered with an error, by name and code",
		}, []string{"event", "code"}),
		FramesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_delivered_total",
			Help: "Outbound frames queued to a session",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_dropped_total",
			Help: "Outbound frames dropped because a session queue was full",
		}),
		MessagesStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_stored_total",
			Help: "Messages persisted",
		}),
		StorageFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "storage_failures_total",
			Help: "Storage calls that failed or were refused by the circuit breaker",
		}),
		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "circuit_breaker_state",
			Help: "0 closed, 1 half-open, 2 open",
		}, []string{"name"}),
		HandshakeFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "handshake_failures_total",
			Help: "Connections refused before upgrade",
		}),
		ProcessRSSBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_rss_bytes",
			Help: "Resident memory of the server process",
		}),
		ProcessCPU: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_cpu_percent",
			Help: "CPU usage of the server process",
		}),
		ProcessOpenFiles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_open_fds",
			Help: "Open file descriptors of the server process",
		}),
	}
}

// Handler exposes the private registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SetOnline(n int) {
	if m == nil {
		return
	}
	m.OnlineUsers.Set(float64(n))
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.OpenSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.OpenSessions.Dec()
}

func (m *Metrics) EventReceived(event string) {
	if m == nil {
		return
	}
	m.EventsReceived.WithLabelValues(event).Inc()
}

func (m *Metrics) EventRejected(event string, code int) {
	if m == nil {
		return
	}
	m.EventsRejected.WithLabelValues(event, strconv.Itoa(code)).Inc()
}

func (m *Metrics) FrameDelivered() {
	if m == nil {
		return
	}
	m.FramesDelivered.Inc()
}

func (m *Metrics) FrameDropped() {
	if m == nil {
		return
	}
	m.FramesDropped.Inc()
}

func (m *Metrics) MessageStored() {
	if m == nil {
		return
	}
	m.MessagesStored.Inc()
}

func (m *Metrics) StorageFailed() {
	if m == nil {
		return
	}
	m.StorageFailures.Inc()
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) HandshakeRefused() {
	if m == nil {
		return
	}
	m.HandshakeFailed.Inc()
}

func (m *Metrics) SetProcessStats(rssBytes uint64, cpuPercent float64, openFiles int32) {
	if m == nil {
		return
	}
	m.ProcessRSSBytes.Set(float64(rssBytes))
	m.ProcessCPU.Set(cpuPercent)
	m.ProcessOpenFiles.Set(float64(openFiles))
}
