package observability

import (
	"codeshare/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeIgnored  = "ignored"
)

// Metrics holds the collaboration counters exposed on /metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	intents          *prometheus.CounterVec
	blocksAppended   prometheus.Counter
	fanoutFailures   prometheus.Counter
	archives         *prometheus.CounterVec
	residentSessions prometheus.Gauge
	queueFill        *prometheus.GaugeVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		intents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codeshare",
			Name:      "intents_total",
			Help:      "Intents processed by session mailboxes, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		blocksAppended: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "codeshare",
			Name:      "ledger_blocks_appended_total",
			Help:      "Blocks appended to session ledgers.",
		}),
		fanoutFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "codeshare",
			Name:      "fanout_failures_total",
			Help:      "Event deliveries that failed or timed out.",
		}),
		archives: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codeshare",
			Name:      "archives_total",
			Help:      "Evicted session archives, by outcome.",
		}, []string{"outcome"}),
		residentSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "codeshare",
			Name:      "resident_sessions",
			Help:      "Sessions currently held in memory.",
		}),
		queueFill: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "codeshare",
			Name:      "queue_fill_percent",
			Help:      "Highest sampled fill of each internal queue, in percent of its capacity.",
		}, []string{"queue"}),
	}
}

func (m *Metrics) IntentProcessed(kind domain.IntentKind, outcome string) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(string(kind), outcome).Inc()
}

func (m *Metrics) BlockAppended() {
	if m == nil {
		return
	}
	m.blocksAppended.Inc()
}

func (m *Metrics) FanoutFailed() {
	if m == nil {
		return
	}
	m.fanoutFailures.Inc()
}

func (m *Metrics) ArchiveWritten() {
	if m == nil {
		return
	}
	m.archives.WithLabelValues("written").Inc()
}

func (m *Metrics) ArchiveDropped() {
	if m == nil {
		return
	}
	m.archives.WithLabelValues("dropped").Inc()
}

func (m *Metrics) SetResidentSessions(n int) {
	if m == nil {
		return
	}
	m.residentSessions.Set(float64(n))
}

func (m *Metrics) SetQueueFill(queue string, percent float64) {
	if m == nil {
		return
	}
	m.queueFill.WithLabelValues(queue).Set(percent)
}
