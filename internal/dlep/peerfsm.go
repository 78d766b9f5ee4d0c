package dlep

// PeerState is one of the peer session's five FSM states (spec.md §4.3).
// PeerStateReset is transient: the engine collapses it straight back to
// PeerStateDiscovery at handler return, so ApplyEvent never actually
// returns PeerStateReset as a NewState — transitions that the table
// marks "RESET then DISCOVERY" resolve directly to PeerStateDiscovery.
type PeerState int

const (
	PeerStateDiscovery PeerState = iota
	PeerStateInitialization
	PeerStateInSession
	PeerStateTerminating
	PeerStateReset
)

func (s PeerState) String() string {
	switch s {
	case PeerStateDiscovery:
		return "DISCOVERY"
	case PeerStateInitialization:
		return "INITIALIZATION"
	case PeerStateInSession:
		return "IN_SESSION"
	case PeerStateTerminating:
		return "TERMINATING"
	case PeerStateReset:
		return "RESET"
	default:
		return "UNKNOWN"
	}
}

// PeerEvent is one of the peer FSM's input events (spec.md §4.3).
type PeerEvent int

const (
	EventStartInit PeerEvent = iota
	EventPeerAttDiscovery
	EventPeerOffer
	EventPeerOfferTmo
	EventPeerInitRequest
	EventPeerInitResponse
	EventPeerHeartbeat
	EventPeerHeartbeatTmo
	EventPeerUpdateRequest
	EventPeerUpdateResponse
	EventUserPeerTermRequest
	EventPeerTermRequest
	EventPeerTermResponse
	EventPeerTermResponseTmo
	EventTestSessionReset
)

func (e PeerEvent) String() string {
	switch e {
	case EventStartInit:
		return "start_init"
	case EventPeerAttDiscovery:
		return "peer_att_discovery"
	case EventPeerOffer:
		return "peer_offer"
	case EventPeerOfferTmo:
		return "peer_offer_tmo"
	case EventPeerInitRequest:
		return "peer_init_request"
	case EventPeerInitResponse:
		return "peer_init_response"
	case EventPeerHeartbeat:
		return "peer_heartbeat"
	case EventPeerHeartbeatTmo:
		return "peer_heartbeat_tmo"
	case EventPeerUpdateRequest:
		return "peer_update_request"
	case EventPeerUpdateResponse:
		return "peer_update_response"
	case EventUserPeerTermRequest:
		return "user_peer_term_request"
	case EventPeerTermRequest:
		return "peer_term_request"
	case EventPeerTermResponse:
		return "peer_term_response"
	case EventPeerTermResponseTmo:
		return "peer_term_response_tmo"
	case EventTestSessionReset:
		return "test_session_reset"
	default:
		return "unknown"
	}
}

// PeerAction is one atomic side effect the engine executes after
// ApplyEvent returns; the FSM itself never performs these — it only
// names them, keeping ApplyEvent a pure function (spec.md §4.3, §9).
type PeerAction int

const (
	ActionSendAttachedDiscovery PeerAction = iota
	ActionArmOfferTimer
	ActionCopyPeerType
	ActionQueuePeerOffer
	ActionSendPeerOffer
	ActionHandleInitRequest
	ActionHandleInitResponse
	ActionSendPeerInitAck
	ActionIncrementMissedOffer
	ActionClearMissedHeartbeat
	ActionEvaluateHeartbeatTimeout
	ActionApplyAddressUpdate
	ActionSendPeerUpdateResponse
	ActionLatchStatusCode
	ActionDeallocateNeighbors
	ActionSendPeerTermination
	ActionStopHeartbeatTimer
	ActionArmTermAckTimer
	ActionSendPeerTermAck
	ActionStopTimers
)

func (a PeerAction) String() string {
	names := [...]string{
		"send_attached_discovery", "arm_offer_timer", "copy_peer_type",
		"queue_peer_offer", "send_peer_offer", "handle_init_request",
		"handle_init_response", "send_peer_init_ack", "increment_missed_offer",
		"clear_missed_heartbeat", "evaluate_heartbeat_timeout", "apply_address_update",
		"send_peer_update_response", "latch_status_code", "deallocate_neighbors",
		"send_peer_termination", "stop_heartbeat_timer", "arm_term_ack_timer",
		"send_peer_term_ack", "stop_timers",
	}
	if int(a) < len(names) {
		return names[a]
	}
	return "unknown"
}

type peerStateEvent struct {
	state PeerState
	event PeerEvent
}

type peerTransition struct {
	next    PeerState
	actions []PeerAction
}

// peerFSMTable is the peer FSM's complete transition table, transcribed
// from spec.md §4.3. Rows the spec marks "RESET then DISCOVERY" resolve
// directly to PeerStateDiscovery.
var peerFSMTable = map[peerStateEvent]peerTransition{
	{PeerStateDiscovery, EventStartInit}: {
		PeerStateDiscovery, []PeerAction{ActionSendAttachedDiscovery, ActionArmOfferTimer},
	},
	{PeerStateDiscovery, EventPeerAttDiscovery}: {
		PeerStateInitialization, []PeerAction{ActionCopyPeerType, ActionQueuePeerOffer},
	},
	{PeerStateDiscovery, EventPeerOffer}: {
		PeerStateInitialization, []PeerAction{ActionSendPeerOffer},
	},
	{PeerStateDiscovery, EventPeerInitRequest}: {
		PeerStateInSession, []PeerAction{ActionHandleInitRequest},
	},
	{PeerStateDiscovery, EventPeerInitResponse}: {
		PeerStateInSession, []PeerAction{ActionHandleInitResponse},
	},
	{PeerStateDiscovery, EventPeerOfferTmo}: {
		PeerStateDiscovery, []PeerAction{ActionIncrementMissedOffer},
	},

	{PeerStateInitialization, EventPeerInitRequest}: {
		PeerStateInSession, []PeerAction{ActionHandleInitRequest},
	},
	{PeerStateInitialization, EventPeerInitResponse}: {
		PeerStateInSession, []PeerAction{ActionSendPeerInitAck},
	},

	{PeerStateInSession, EventPeerHeartbeat}: {
		PeerStateInSession, []PeerAction{ActionClearMissedHeartbeat},
	},
	{PeerStateInSession, EventPeerHeartbeatTmo}: {
		PeerStateInSession, []PeerAction{ActionEvaluateHeartbeatTimeout},
	},
	{PeerStateInSession, EventPeerUpdateRequest}: {
		PeerStateInSession, []PeerAction{ActionApplyAddressUpdate, ActionClearMissedHeartbeat, ActionSendPeerUpdateResponse},
	},
	{PeerStateInSession, EventPeerUpdateResponse}: {
		PeerStateInSession, []PeerAction{ActionLatchStatusCode},
	},
	{PeerStateInSession, EventUserPeerTermRequest}: {
		PeerStateTerminating, []PeerAction{ActionDeallocateNeighbors, ActionSendPeerTermination, ActionStopHeartbeatTimer, ActionArmTermAckTimer},
	},
	{PeerStateInSession, EventPeerTermRequest}: {
		PeerStateReset, []PeerAction{ActionSendPeerTermAck, ActionDeallocateNeighbors, ActionStopTimers},
	},

	{PeerStateTerminating, EventPeerTermResponse}: {
		PeerStateDiscovery, []PeerAction{ActionStopTimers, ActionDeallocateNeighbors},
	},
	{PeerStateTerminating, EventPeerTermResponseTmo}: {
		PeerStateDiscovery, []PeerAction{ActionDeallocateNeighbors},
	},
	{PeerStateTerminating, EventPeerTermRequest}: {
		PeerStateDiscovery, []PeerAction{ActionStopHeartbeatTimer, ActionSendPeerTermAck},
	},

	// Not a spec.md §4.3 row: this implementation's own "init=1" CLI test
	// mode (PeerContext.TestSessionInitMode) acknowledges a peer-init
	// request and then immediately reverts to DISCOVERY rather than
	// advancing into a real session. Modeling the revert as a transition
	// keeps it going through ApplyEvent/applyPeerEvent instead of a raw
	// state write, so history and metrics see it like any other change.
	{PeerStateInSession, EventTestSessionReset}: {
		PeerStateDiscovery, nil,
	},
}

// PeerFSMResult is ApplyEvent's return value: the transition taken (or
// not, if no entry matched) plus the actions the engine must execute.
type PeerFSMResult struct {
	OldState PeerState
	NewState PeerState
	Event    PeerEvent
	Actions  []PeerAction
	Changed  bool
}

// ApplyEvent is the peer FSM: a pure lookup into peerFSMTable, with no
// side effects of its own. An event with no entry for the current state
// is a no-op (Changed is false, NewState equals OldState) — this is how
// "unexpected sequence" errors resolve per spec.md §7: the event is
// ignored and any running timer continues.
func ApplyEvent(current PeerState, event PeerEvent) PeerFSMResult {
	t, ok := peerFSMTable[peerStateEvent{current, event}]
	if !ok {
		return PeerFSMResult{OldState: current, NewState: current, Event: event}
	}
	// PeerStateReset never survives past the transition the table
	// assigns it to DISCOVERY ("RESET then DISCOVERY" rows already
	// encode PeerStateDiscovery directly above); the only row that
	// names PeerStateReset as its Next is the IN_SESSION|peer_term_request
	// row, which the engine treats identically to DISCOVERY since the
	// reset is collapsed at handler return, per spec.md §4.3.
	next := t.next
	if next == PeerStateReset {
		next = PeerStateDiscovery
	}
	return PeerFSMResult{
		OldState: current,
		NewState: next,
		Event:    event,
		Actions:  t.actions,
		Changed:  next != current,
	}
}

// PeerTransitionDescriptor is one row of the peer FSM table, exposed for
// the "show peer fsm_table" CLI command (SPEC_FULL.md §12.3).
type PeerTransitionDescriptor struct {
	State   PeerState
	Event   PeerEvent
	Next    PeerState
	Actions []PeerAction
}

// PeerFSMDescriptors returns a stable, sorted view of the peer FSM's
// transition table for introspection; it has no protocol effect.
func PeerFSMDescriptors() []PeerTransitionDescriptor {
	out := make([]PeerTransitionDescriptor, 0, len(peerFSMTable))
	for k, v := range peerFSMTable {
		out = append(out, PeerTransitionDescriptor{State: k.state, Event: k.event, Next: v.next, Actions: v.actions})
	}
	sortPeerDescriptors(out)
	return out
}

func sortPeerDescriptors(d []PeerTransitionDescriptor) {
	for i := 1; i < len(d); i++ {
		for j := i; j > 0; j-- {
			a, b := d[j-1], d[j]
			if a.State > b.State || (a.State == b.State && a.Event > b.Event) {
				d[j-1], d[j] = d[j], d[j-1]
			} else {
				break
			}
		}
	}
}
