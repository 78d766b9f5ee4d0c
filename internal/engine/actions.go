package engine

import (
	"log/slog"

	"github.com/dantte-lp/godlep/internal/dlep"
)

// applyPeerEvent runs the peer FSM for event, records the transition in
// the peer's history ring buffer, and executes the returned actions in
// order. This is the only place peer-FSM side effects happen; ApplyEvent
// itself stays pure (spec.md §4.3, §9).
func (r *Radio) applyPeerEvent(peer *dlep.PeerContext, event dlep.PeerEvent) {
	result := dlep.ApplyEvent(peer.State, event)
	peer.History.Append(event.String(), result.OldState.String(), result.NewState.String())
	if r.metrics != nil && result.Changed {
		r.metrics.IncFSMTransitions("peer", result.OldState.String(), result.NewState.String())
		r.metrics.SetPeerState(result.NewState.String())
	}
	peer.State = result.NewState

	for _, a := range result.Actions {
		r.executePeerAction(peer, a)
	}
}

func (r *Radio) executePeerAction(peer *dlep.PeerContext, action dlep.PeerAction) {
	switch action {
	case dlep.ActionSendAttachedDiscovery:
		data := dlep.BuildAttachedDiscovery(peer)
		r.sendUDP(data, r.settings.RouterUDPAddr)
		r.countSent(dlep.MessageAttachedPeerDiscovery)

	case dlep.ActionArmOfferTimer:
		r.wheel.Start(&peer.OfferTimer, peer.Timers.OfferIntervalMS, 0, func() {
			r.applyPeerEvent(peer, dlep.EventPeerOfferTmo)
		})

	case dlep.ActionCopyPeerType:
		peer.PeerType = peer.Message.PeerType

	case dlep.ActionQueuePeerOffer:
		// The table has already moved the peer to INITIALIZATION, which
		// has no peer_offer row, so the offer is sent directly.
		r.executePeerAction(peer, dlep.ActionSendPeerOffer)

	case dlep.ActionSendPeerOffer:
		data := dlep.BuildPeerOffer(peer)
		r.sendUDP(data, r.settings.RouterUDPAddr)
		r.countSent(dlep.MessagePeerOffer)

	case dlep.ActionHandleInitRequest:
		peer.Timers.HeartbeatIntervalMS = peer.Message.HeartbeatInterval
		if peer.Message.PeerTypePresent {
			peer.PeerType = peer.Message.PeerType
		}
		if peer.Message.IPv4Present {
			peer.RouterIPv4 = peer.Message.IPv4
		}
		peer.StatusCode = dlep.StatusSuccess
		if peer.TestSessionInitMode {
			data := dlep.BuildPeerInitResponse(peer)
			r.sendTCP(data)
			r.countSent(dlep.MessagePeerInitResponse)
			r.applyPeerEvent(peer, dlep.EventTestSessionReset)
			return
		}
		r.wheel.Stop(&peer.OfferTimer)
		r.wheel.Start(&peer.Heartbeat, peer.Timers.HeartbeatIntervalMS, peer.Timers.HeartbeatIntervalMS, func() {
			r.applyPeerEvent(peer, dlep.EventPeerHeartbeatTmo)
		})
		// The peer is already IN_SESSION, which has no peer_init_response
		// row, so the init-ack is sent directly.
		r.executePeerAction(peer, dlep.ActionSendPeerInitAck)

	case dlep.ActionHandleInitResponse:
		if peer.Message.StatusPresent {
			peer.StatusCode = peer.Message.StatusCode
		}

	case dlep.ActionSendPeerInitAck:
		data := dlep.BuildPeerInitResponse(peer)
		r.sendTCP(data)
		r.countSent(dlep.MessagePeerInitResponse)

	case dlep.ActionIncrementMissedOffer:
		peer.MissedOfferAcks++
		if r.metrics != nil {
			r.metrics.IncMissedAck("peer_offer")
		}

	case dlep.ActionClearMissedHeartbeat:
		peer.MissedHeartbeatAcks = 0

	case dlep.ActionEvaluateHeartbeatTimeout:
		peer.MissedHeartbeatAcks++
		if r.metrics != nil {
			r.metrics.IncMissedAck("peer_heartbeat")
		}
		if peer.MissedHeartbeatAcks >= peer.Timers.HeartbeatMissedThreshold {
			r.tearDownPeerOnHeartbeatLoss(peer)
		} else {
			data := dlep.BuildPeerHeartbeat(peer)
			r.sendTCP(data)
			r.countSent(dlep.MessagePeerHeartbeat)
		}

	case dlep.ActionApplyAddressUpdate:
		if peer.Message.IPv4Present {
			peer.PendingIPv4 = dlep.PendingAddressUpdate{Op: peer.Message.IPv4Op, IPv4: peer.Message.IPv4}
		}
		if peer.Message.IPv6Present {
			peer.PendingIPv6 = dlep.PendingAddressUpdate{Op: peer.Message.IPv6Op, IPv6: peer.Message.IPv6}
		}

	case dlep.ActionSendPeerUpdateResponse:
		data := dlep.BuildPeerUpdateResponse(peer)
		r.sendTCP(data)
		r.countSent(dlep.MessagePeerUpdateResponse)

	case dlep.ActionLatchStatusCode:
		if peer.Message.StatusPresent {
			peer.StatusCode = peer.Message.StatusCode
		}

	case dlep.ActionDeallocateNeighbors:
		peer.Neighbors.RemoveAll()
		if r.metrics != nil {
			r.metrics.SetNeighborCount(0)
		}

	case dlep.ActionSendPeerTermination:
		data := dlep.BuildPeerTermRequest(peer)
		r.sendTCP(data)
		r.countSent(dlep.MessagePeerTermRequest)

	case dlep.ActionStopHeartbeatTimer:
		r.wheel.Stop(&peer.Heartbeat)

	case dlep.ActionArmTermAckTimer:
		timeout := 4 * peer.Timers.HeartbeatIntervalMS
		r.wheel.Start(&peer.TermAckTimer, timeout, 0, func() {
			r.applyPeerEvent(peer, dlep.EventPeerTermResponseTmo)
		})

	case dlep.ActionSendPeerTermAck:
		data := dlep.BuildPeerTermResponse(peer)
		r.sendTCP(data)
		r.countSent(dlep.MessagePeerTermResponse)

	case dlep.ActionStopTimers:
		r.wheel.Stop(&peer.OfferTimer)
		r.wheel.Stop(&peer.Heartbeat)
		r.wheel.Stop(&peer.TermAckTimer)
	}
}

// tearDownPeerOnHeartbeatLoss implements spec.md §4.3's heartbeat-miss
// teardown path: stop the heartbeat timer, deallocate neighbors, clear
// TCP readiness, zero the missed counter, send a final termination, and
// force the peer back to DISCOVERY.
func (r *Radio) tearDownPeerOnHeartbeatLoss(peer *dlep.PeerContext) {
	r.wheel.Stop(&peer.Heartbeat)
	peer.Neighbors.RemoveAll()
	if r.metrics != nil {
		r.metrics.SetNeighborCount(0)
	}
	peer.TCPReady = false
	peer.MissedHeartbeatAcks = 0
	data := dlep.BuildPeerTermRequest(peer)
	r.sendTCP(data)
	r.countSent(dlep.MessagePeerTermRequest)
	r.logger.Warn("peer heartbeat missed threshold exceeded, tearing down", slog.Uint64("threshold", uint64(peer.Timers.HeartbeatMissedThreshold)))
	peer.State = dlep.PeerStateDiscovery
}

// applyNeighborEvent runs the neighbor FSM for event, records history,
// and executes the returned actions.
func (r *Radio) applyNeighborEvent(peer *dlep.PeerContext, n *dlep.NeighborContext, event dlep.NeighborEvent) {
	result := dlep.NeighborApplyEvent(n.State, event)
	n.History.Append(event.String(), result.OldState.String(), result.NewState.String())
	if r.metrics != nil && result.Changed {
		r.metrics.IncFSMTransitions("neighbor", result.OldState.String(), result.NewState.String())
	}
	n.State = result.NewState

	for _, a := range result.Actions {
		r.executeNeighborAction(peer, n, a)
	}
}

func (r *Radio) executeNeighborAction(peer *dlep.PeerContext, n *dlep.NeighborContext, action dlep.NeighborAction) {
	switch action {
	case dlep.ActionHandleInitAck:
		if peer.Message.StatusPresent && peer.Message.StatusCode == dlep.StatusSuccess {
			r.wheel.Stop(&n.InitAckTimer)
			if peer.Timers.NeighborUpdateIntervalMS > 0 {
				r.wheel.Start(&n.UpdateIntervalTimer, peer.Timers.NeighborUpdateIntervalMS, peer.Timers.NeighborUpdateIntervalMS, func() {
					r.applyNeighborEvent(peer, n, dlep.NeighborEventUpdateMetricsInterval)
				})
			}
		} else {
			r.removeNeighbor(peer, n)
		}

	case dlep.ActionEvaluateUpAckTimeout:
		n.MissedUpAcks++
		if r.metrics != nil {
			r.metrics.IncMissedAck("neighbor_up")
		}
		if n.MissedUpAcks >= peer.Timers.NeighborUpMissedThreshold {
			r.removeNeighbor(peer, n)
		}

	case dlep.ActionSendNeighborMetrics:
		data := dlep.BuildNeighborMetrics(n)
		r.sendTCP(data)
		r.countSent(dlep.MessageNeighborMetrics)

	case dlep.ActionHandleUpdateAck:
		// peer.Message.CreditPresent is never set by decodeOneTLV (no
		// credit-window TLV code exists in the closed registry — see
		// DESIGN.md's "Credit windowing out of scope" entry), so this
		// branch is unreachable today; it is kept so a future credit-TLV
		// decoder only needs to start populating CreditPresent/MRW, not
		// add handling here.
		if peer.Message.CreditPresent {
			n.Credit.MRW = peer.Message.MRW
			r.wheel.Stop(&n.UpdateAckTimer)
		} else if peer.Message.StatusPresent {
			r.wheel.Stop(&n.UpdateAckTimer)
		}

	case dlep.ActionEvaluateUpdateAckTimeout:
		n.MissedUpdateAcks++
		if r.metrics != nil {
			r.metrics.IncMissedAck("neighbor_update")
		}
		if n.MissedUpdateAcks >= peer.Timers.NeighborUpMissedThreshold {
			r.removeNeighbor(peer, n)
		}

	case dlep.ActionRecordAddrResponse:
		// Scratch already carries the response fields; nothing further
		// to latch beyond what the CLI's "show neighbor" reads live.

	case dlep.ActionStopUpdateIntervalTimer:
		r.wheel.Stop(&n.UpdateIntervalTimer)

	case dlep.ActionSendNeighborDown:
		data := dlep.BuildNeighborDownRequest(n)
		r.sendTCP(data)
		r.countSent(dlep.MessageNeighborDownRequest)

	case dlep.ActionArmNeighborTermAckTimer:
		r.wheel.Start(&n.TermAckTimer, peer.Timers.NeighborDownAckTimeoutMS, 0, func() {
			r.applyNeighborEvent(peer, n, dlep.NeighborEventDownAckTmo)
		})

	case dlep.ActionSendNeighborDownAck:
		data := dlep.BuildNeighborDownResponse(n)
		r.sendTCP(data)
		r.countSent(dlep.MessageNeighborDownResponse)

	case dlep.ActionClearAndRemoveNeighbor:
		r.removeNeighbor(peer, n)

	case dlep.ActionHandleLinkCharRequest:
		if peer.Message.CDRPresent {
			n.Metrics.CDRTx = peer.Message.CDRTx
		}
		if peer.Message.LatencyPresent {
			n.Metrics.Latency = peer.Message.Latency
		}
		data := dlep.BuildLinkCharResponse(n)
		r.sendTCP(data)
		r.countSent(dlep.MessageLinkCharResponse)

	case dlep.ActionVerifyTermSequence:
		// No-op: this implementation's message-block header carries no
		// sequence number to verify (see DESIGN.md's "Sequence-number
		// machinery out of scope" entry), so there is nothing to compare
		// or log here. The action is kept because the neighbor FSM table
		// names it on this transition.

	case dlep.ActionStopTermAckTimer:
		r.wheel.Stop(&n.TermAckTimer)

	case dlep.ActionEvaluateDownAckTimeout:
		n.MissedDownAcks++
		if r.metrics != nil {
			r.metrics.IncMissedAck("neighbor_down")
		}
		if n.MissedDownAcks >= peer.Timers.NeighborDownMissedThreshold {
			r.removeNeighbor(peer, n)
		}
	}
}

func (r *Radio) removeNeighbor(peer *dlep.PeerContext, n *dlep.NeighborContext) {
	r.wheel.Stop(&n.InitAckTimer)
	r.wheel.Stop(&n.UpdateAckTimer)
	r.wheel.Stop(&n.UpdateIntervalTimer)
	r.wheel.Stop(&n.TermAckTimer)
	peer.Neighbors.Remove(n.Handle)
	if r.metrics != nil {
		r.metrics.SetNeighborCount(peer.Neighbors.Count())
	}
}
