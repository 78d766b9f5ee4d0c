package dlep

import "testing"

func TestApplyEvent_DiscoveryToInitialization(t *testing.T) {
	r := ApplyEvent(PeerStateDiscovery, EventPeerAttDiscovery)
	if !r.Changed || r.NewState != PeerStateInitialization {
		t.Fatalf("got %+v", r)
	}
	found := false
	for _, a := range r.Actions {
		if a == ActionQueuePeerOffer {
			found = true
		}
	}
	if !found {
		t.Fatal("expected ActionQueuePeerOffer")
	}
}

func TestApplyEvent_HeartbeatMissTeardown(t *testing.T) {
	// spec.md §8 scenario 3: heartbeat timeout stays IN_SESSION in the
	// table itself; the missed-threshold teardown is an action-level
	// decision the engine makes inside ActionEvaluateHeartbeatTimeout.
	r := ApplyEvent(PeerStateInSession, EventPeerHeartbeatTmo)
	if r.NewState != PeerStateInSession {
		t.Fatalf("state = %v", r.NewState)
	}
	if len(r.Actions) != 1 || r.Actions[0] != ActionEvaluateHeartbeatTimeout {
		t.Fatalf("actions = %v", r.Actions)
	}
}

func TestApplyEvent_TerminatingCollapsesToDiscovery(t *testing.T) {
	for _, ev := range []PeerEvent{EventPeerTermResponse, EventPeerTermResponseTmo, EventPeerTermRequest} {
		r := ApplyEvent(PeerStateTerminating, ev)
		if r.NewState != PeerStateDiscovery {
			t.Fatalf("event %v: state = %v, want DISCOVERY", ev, r.NewState)
		}
	}
}

func TestApplyEvent_InSessionPeerTermRequestResetsViaDiscovery(t *testing.T) {
	r := ApplyEvent(PeerStateInSession, EventPeerTermRequest)
	if r.NewState != PeerStateDiscovery {
		t.Fatalf("state = %v, want DISCOVERY (RESET collapses immediately)", r.NewState)
	}
}

func TestApplyEvent_UnknownTransitionIsNoOp(t *testing.T) {
	r := ApplyEvent(PeerStateInSession, EventStartInit)
	if r.Changed {
		t.Fatalf("expected no-op, got %+v", r)
	}
	if r.NewState != PeerStateInSession {
		t.Fatalf("state = %v", r.NewState)
	}
}

func TestApplyEvent_AtMostOnePeerTimerArmedInvariant(t *testing.T) {
	// DISCOVERY's start_init arms the offer timer; once a peer reaches
	// IN_SESSION the offer timer must already be stopped by the
	// transition into IN_SESSION, leaving heartbeat the only peer timer
	// a caller would arm. This test documents the transition-table shape
	// that makes that invariant (spec.md §3) hold: no row both arms the
	// offer timer and transitions into IN_SESSION.
	for k, v := range peerFSMTable {
		if v.next != PeerStateInSession {
			continue
		}
		for _, a := range v.actions {
			if a == ActionArmOfferTimer {
				t.Fatalf("state %v event %v arms offer timer while entering IN_SESSION", k.state, k.event)
			}
		}
	}
}

func TestPeerFSMDescriptors_Sorted(t *testing.T) {
	d := PeerFSMDescriptors()
	if len(d) != len(peerFSMTable) {
		t.Fatalf("len = %d, want %d", len(d), len(peerFSMTable))
	}
	for i := 1; i < len(d); i++ {
		a, b := d[i-1], d[i]
		if a.State > b.State || (a.State == b.State && a.Event > b.Event) {
			t.Fatalf("not sorted at %d: %+v then %+v", i, a, b)
		}
	}
}
