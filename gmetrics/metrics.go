// Package gmetrics holds the Prometheus metrics exported by a consensor.
package gmetrics

import (
	"net/http"

	"github.com/gordian-engine/gorvote/gsum"
	"github.com/gordian-engine/gorvote/gtransport/ghttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gorvote"

// Metrics is the set of collectors updated by the manager.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	roundsCreated   prometheus.Counter
	roundsResolved  *prometheus.CounterVec
	roundsArchived  prometheus.Counter
	roundsTracked   prometheus.Gauge
	revealsRejected prometheus.Counter
	messagesHandled *prometheus.CounterVec
	messagesDropped *prometheus.CounterVec
	proposalCalls   prometheus.Counter
}

// New creates the metrics and registers them on a new registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,

		roundsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_created_total",
			Help:      "Rounds created on first reference.",
		}),
		roundsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_resolved_total",
			Help:      "Rounds that reached a final result, by result.",
		}, []string{"result"}),
		roundsArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_archived_total",
			Help:      "Resolved rounds evicted from memory into the result store.",
		}),
		roundsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rounds_tracked",
			Help:      "Rounds currently held in memory.",
		}),
		revealsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reveals_rejected_total",
			Help:      "Peer reveals that did not match the peer's commitment.",
		}),
		messagesHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_handled_total",
			Help:      "Inbound messages applied by the manager, by payload.",
		}, []string{"kind"}),
		messagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Inbound messages discarded without effect, by reason.",
		}, []string{"reason"}),
		proposalCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposal_calls_total",
			Help:      "Proposal calls started by this consensor.",
		}),
	}

	reg.MustRegister(
		m.roundsCreated,
		m.roundsResolved,
		m.roundsArchived,
		m.roundsTracked,
		m.revealsRejected,
		m.messagesHandled,
		m.messagesDropped,
		m.proposalCalls,
	)

	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) RoundCreated() {
	if m == nil {
		return
	}
	m.roundsCreated.Inc()
}

func (m *Metrics) RoundResolved(r gsum.Result) {
	if m == nil {
		return
	}
	m.roundsResolved.WithLabelValues(r.String()).Inc()
}

func (m *Metrics) RoundArchived() {
	if m == nil {
		return
	}
	m.roundsArchived.Inc()
}

func (m *Metrics) SetRoundsTracked(n int) {
	if m == nil {
		return
	}
	m.roundsTracked.Set(float64(n))
}

func (m *Metrics) RevealRejected() {
	if m == nil {
		return
	}
	m.revealsRejected.Inc()
}

// MessageHandled counts an applied message.
// kind is a payload name or "proposal_call".
func (m *Metrics) MessageHandled(kind string) {
	if m == nil {
		return
	}
	m.messagesHandled.WithLabelValues(kind).Inc()
}

// MessageDropped counts a discarded message.
func (m *Metrics) MessageDropped(reason string) {
	if m == nil {
		return
	}
	m.messagesDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) ProposalCallStarted() {
	if m == nil {
		return
	}
	m.proposalCalls.Inc()
}

// RegisterSendStats exports the counters of an HTTP transport client.
func (m *Metrics) RegisterSendStats(c *ghttp.Client) {
	m.reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound messages accepted by a peer.",
		}, func() float64 { return float64(c.Stats().Sent) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "Outbound messages that failed to reach a peer.",
		}, func() float64 { return float64(c.Stats().SendErrors) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_dropped_total",
			Help:      "Outbound messages dropped because the send queue was full.",
		}, func() float64 { return float64(c.Stats().Dropped) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sends",
			Help:      "Outbound requests currently in flight.",
		}, func() float64 { return float64(c.Stats().ActiveSends) }),
	)
}
