package dlep

import "testing"

func TestNeighborApplyEvent_InitAckAdvancesToUpdate(t *testing.T) {
	r := NeighborApplyEvent(NeighborStateInitializing, NeighborEventInitAck)
	if !r.Changed || r.NewState != NeighborStateUpdate {
		t.Fatalf("got %+v", r)
	}
}

func TestNeighborApplyEvent_LinkCharRequestStaysInUpdate(t *testing.T) {
	r := NeighborApplyEvent(NeighborStateUpdate, NeighborEventLinkCharReq)
	if r.Changed {
		t.Fatalf("expected no state change, got %+v", r)
	}
	if len(r.Actions) != 1 || r.Actions[0] != ActionHandleLinkCharRequest {
		t.Fatalf("actions = %v", r.Actions)
	}
}

func TestNeighborApplyEvent_UpdateAckStaysInUpdate(t *testing.T) {
	r := NeighborApplyEvent(NeighborStateUpdate, NeighborEventUpdateAck)
	if r.Changed {
		t.Fatalf("expected no state change, got %+v", r)
	}
	if len(r.Actions) != 1 || r.Actions[0] != ActionHandleUpdateAck {
		t.Fatalf("actions = %v", r.Actions)
	}
}

func TestNeighborApplyEvent_TermAckStopsAndRemoves(t *testing.T) {
	r := NeighborApplyEvent(NeighborStateTerminating, NeighborEventTermAck)
	found := false
	for _, a := range r.Actions {
		if a == ActionClearAndRemoveNeighbor {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ActionClearAndRemoveNeighbor, got %v", r.Actions)
	}
}

func TestNeighborApplyEvent_UnknownTransitionIsNoOp(t *testing.T) {
	r := NeighborApplyEvent(NeighborStateInitializing, NeighborEventLinkCharReq)
	if r.Changed {
		t.Fatalf("expected no-op, got %+v", r)
	}
}

func TestNeighborFSMDescriptors_Sorted(t *testing.T) {
	d := NeighborFSMDescriptors()
	if len(d) != len(neighborFSMTable) {
		t.Fatalf("len = %d, want %d", len(d), len(neighborFSMTable))
	}
	for i := 1; i < len(d); i++ {
		a, b := d[i-1], d[i]
		if a.State > b.State || (a.State == b.State && a.Event > b.Event) {
			t.Fatalf("not sorted at %d", i)
		}
	}
}
