// Package observability is the C10 component: Prometheus counters/gauges
// plus a /healthz and /metrics HTTP surface on a gorilla/mux router.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements ingest.Metrics and alerts.Metrics, plus counters for
// cascades, OI surges, reports, and persistence failures.
type Metrics struct {
	eventsIngested      *prometheus.CounterVec
	parseFailures       *prometheus.CounterVec
	cascadesEmitted     prometheus.Counter
	oiSurgesEmitted     prometheus.Counter
	alertsSent          *prometheus.CounterVec
	alertsDropped       *prometheus.CounterVec
	alertsBlocked       prometheus.Counter
	reportsGenerated    prometheus.Counter
	persistenceFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		eventsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "liquidwatch_events_ingested_total",
			Help: "Forced liquidation events ingested, by shard.",
		}, []string{"shard"}),
		parseFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "liquidwatch_parse_failures_total",
			Help: "Frames that failed to decode or validate, by shard.",
		}, []string{"shard"}),
		cascadesEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liquidwatch_cascades_emitted_total",
			Help: "Cascade alerts emitted by the detector.",
		}),
		oiSurgesEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liquidwatch_oi_surges_emitted_total",
			Help: "Open-interest surge alerts emitted by the scanner.",
		}),
		alertsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "liquidwatch_alerts_sent_total",
			Help: "Alerts successfully sent, by kind.",
		}, []string{"kind"}),
		alertsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "liquidwatch_alerts_dropped_total",
			Help: "Alerts dropped after a non-blocked send failure, by kind.",
		}, []string{"kind"}),
		alertsBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liquidwatch_alerts_blocked_total",
			Help: "Sends that failed with RecipientBlocked.",
		}),
		reportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liquidwatch_reports_generated_total",
			Help: "Subscriber digests rendered by the reporting engine.",
		}),
		persistenceFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liquidwatch_persistence_failures_total",
			Help: "Storage calls that returned ErrStorageUnavailable.",
		}),
	}
}

func (m *Metrics) EventIngested(shard int) {
	m.eventsIngested.WithLabelValues(strconv.Itoa(shard)).Inc()
}

func (m *Metrics) ParseFailure(shard int) {
	m.parseFailures.WithLabelValues(strconv.Itoa(shard)).Inc()
}

func (m *Metrics) CascadeEmitted() {
	m.cascadesEmitted.Inc()
}

func (m *Metrics) OISurgeEmitted() {
	m.oiSurgesEmitted.Inc()
}

func (m *Metrics) AlertSent(kind string) {
	m.alertsSent.WithLabelValues(kind).Inc()
}

func (m *Metrics) AlertDropped(kind string) {
	m.alertsDropped.WithLabelValues(kind).Inc()
}

func (m *Metrics) AlertBlocked() {
	m.alertsBlocked.Inc()
}

func (m *Metrics) ReportGenerated() {
	m.reportsGenerated.Inc()
}

func (m *Metrics) PersistenceFailure() {
	m.persistenceFailures.Inc()
}
