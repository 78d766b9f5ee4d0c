// Package dlepmetrics exposes godlep's runtime state as Prometheus
// metrics: peer session state, neighbor counts, message volume, missed
// acknowledgments, FSM transition counts, and the timing wheel's
// current slot.
package dlepmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "godlep"
	subsystem = "radio"
)

// Label names used across the collector's vectors.
const (
	labelMessageCode = "message_code"
	labelMachine     = "machine"
	labelFromState   = "from_state"
	labelToState     = "to_state"
	labelCounterKind = "counter"
)

// Collector holds every godlep Prometheus metric.
type Collector struct {
	// PeerState reports the active peer's current FSM state: one series
	// labelled with the state name, set to 1. Only the current state's
	// series exists at any time (see SetPeerState).
	PeerState *prometheus.GaugeVec

	// NeighborCount tracks how many neighbors the active peer currently
	// reports.
	NeighborCount prometheus.Gauge

	// MessagesSent counts outbound DLEP messages and signals by code.
	MessagesSent *prometheus.CounterVec

	// MessagesReceived counts inbound DLEP messages and signals by code.
	MessagesReceived *prometheus.CounterVec

	// MissedAcks counts missed-acknowledgment events by counter kind
	// (e.g. "peer_offer", "peer_heartbeat", "neighbor_up",
	// "neighbor_update", "neighbor_down").
	MissedAcks *prometheus.CounterVec

	// FSMTransitions counts peer/neighbor FSM transitions labeled by
	// machine ("peer" or "neighbor") and from/to state.
	FSMTransitions *prometheus.CounterVec

	// TimerWheelSlot reports the hashed timing wheel's current bucket
	// index (spec.md §4.5).
	TimerWheelSlot prometheus.Gauge
}

// NewCollector creates a Collector with every metric registered against
// reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.PeerState,
		c.NeighborCount,
		c.MessagesSent,
		c.MessagesReceived,
		c.MissedAcks,
		c.FSMTransitions,
		c.TimerWheelSlot,
	)

	return c
}

func newMetrics() *Collector {
	return &Collector{
		PeerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "peer_state",
			Help:      "Current peer FSM state, one gauge per observed state name set to 1.",
		}, []string{"state"}),

		NeighborCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "neighbor_count",
			Help:      "Number of neighbors currently reported by the active peer session.",
		}),

		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_sent_total",
			Help:      "Total DLEP messages and signals transmitted, by message code.",
		}, []string{labelMessageCode}),

		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_received_total",
			Help:      "Total DLEP messages and signals received, by message code.",
		}, []string{labelMessageCode}),

		MissedAcks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "missed_acks_total",
			Help:      "Total missed acknowledgments, by counter kind.",
		}, []string{labelCounterKind}),

		FSMTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fsm_transitions_total",
			Help:      "Total FSM transitions, by machine and from/to state.",
		}, []string{labelMachine, labelFromState, labelToState}),

		TimerWheelSlot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "timer_wheel_slot",
			Help:      "Current bucket index of the hashed timing wheel.",
		}),
	}
}

// SetPeerState records state as the active peer state, per spec.md §4.3's
// five-state FSM. Series for prior states are removed (the vector is
// Reset first); the CLI's "show peer all" is the authoritative live
// state, this gauge is for dashboards.
func (c *Collector) SetPeerState(state string) {
	c.PeerState.Reset()
	c.PeerState.WithLabelValues(state).Set(1)
}

// SetNeighborCount records the active peer's current neighbor count.
func (c *Collector) SetNeighborCount(n int) {
	c.NeighborCount.Set(float64(n))
}

// IncMessagesSent increments the sent-message counter for code.
func (c *Collector) IncMessagesSent(code string) {
	c.MessagesSent.WithLabelValues(code).Inc()
}

// IncMessagesReceived increments the received-message counter for code.
func (c *Collector) IncMessagesReceived(code string) {
	c.MessagesReceived.WithLabelValues(code).Inc()
}

// IncMissedAck increments the missed-acknowledgment counter for kind.
func (c *Collector) IncMissedAck(kind string) {
	c.MissedAcks.WithLabelValues(kind).Inc()
}

// IncFSMTransitions increments the FSM transition counter for machine
// moving from -> to.
func (c *Collector) IncFSMTransitions(machine, from, to string) {
	c.FSMTransitions.WithLabelValues(machine, from, to).Inc()
}

// SetTimerWheelSlot records the timing wheel's current bucket index.
func (c *Collector) SetTimerWheelSlot(slot int) {
	c.TimerWheelSlot.Set(float64(slot))
}
