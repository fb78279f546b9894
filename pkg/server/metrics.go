package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/groupwire/msgp/pkg/protocol"
)

// Metrics holds the server's Prometheus collectors. Each server instance
// carries its own registry so multiple servers (as in tests) never collide.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	deliveriesTotal   prometheus.Counter
	deliveryFailures  prometheus.Counter
	activeSessions    prometheus.Gauge
	sessionsTotal     prometheus.Counter
	groupsGauge       prometheus.Gauge
	historyEntryTotal prometheus.Counter
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "msgp_requests_total",
			Help: "Requests handled, by verb and reply status",
		}, []string{"verb", "status"}),
		deliveriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "msgp_deliveries_total",
			Help: "Message frames delivered to recipient channels",
		}),
		deliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "msgp_delivery_failures_total",
			Help: "Message deliveries that failed on an individual channel",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "msgp_active_sessions",
			Help: "Currently connected sessions",
		}),
		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "msgp_sessions_total",
			Help: "Sessions accepted since start",
		}),
		groupsGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "msgp_groups",
			Help: "Groups known to the directory",
		}),
		historyEntryTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "msgp_history_entries_total",
			Help: "Raw message frames appended to group histories",
		}),
	}
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRequest(verb string, status protocol.Status) {
	m.requestsTotal.WithLabelValues(verb, strconv.Itoa(int(status))).Inc()
}

func (m *Metrics) RecordDelivery() {
	m.deliveriesTotal.Inc()
}

func (m *Metrics) RecordDeliveryFailure() {
	m.deliveryFailures.Inc()
}

func (m *Metrics) RecordActiveSessions(count int) {
	m.activeSessions.Set(float64(count))
}

func (m *Metrics) RecordSessionCreated() {
	m.sessionsTotal.Inc()
}

func (m *Metrics) RecordGroupCount(count int) {
	m.groupsGauge.Set(float64(count))
}

func (m *Metrics) RecordHistoryAppend() {
	m.historyEntryTotal.Inc()
}
