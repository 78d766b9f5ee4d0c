package dlep

import "testing"

func TestPeerStore_CreateLookupRemove(t *testing.T) {
	s := NewPeerStore()
	h := s.Create(TimerConfig{}, "radio1")
	ctx, ok := s.Lookup(h)
	if !ok || ctx.PeerType != "radio1" {
		t.Fatalf("lookup failed: ok=%v ctx=%+v", ok, ctx)
	}
	if s.Count() != 1 {
		t.Fatalf("count = %d", s.Count())
	}
	s.Remove(h)
	if _, ok := s.Lookup(h); ok {
		t.Fatal("expected removed handle to fail lookup")
	}
	if s.Count() != 0 {
		t.Fatalf("count = %d after remove", s.Count())
	}
}

func TestPeerStore_StaleHandleAfterSlotReuse(t *testing.T) {
	s := NewPeerStore()
	h1 := s.Create(TimerConfig{}, "a")
	s.Remove(h1)
	h2 := s.Create(TimerConfig{}, "b")

	if h1.Index != h2.Index {
		t.Fatalf("expected slot reuse: h1=%+v h2=%+v", h1, h2)
	}
	if h1.Generation == h2.Generation {
		t.Fatal("expected generation to advance on reuse")
	}
	if _, ok := s.Lookup(h1); ok {
		t.Fatal("stale handle must not resolve to the new occupant")
	}
	ctx, ok := s.Lookup(h2)
	if !ok || ctx.PeerType != "b" {
		t.Fatalf("lookup h2 failed: ok=%v ctx=%+v", ok, ctx)
	}
}

func TestNeighborStore_LookupByMAC(t *testing.T) {
	s := NewNeighborStore()
	mac := [6]byte{1, 2, 3, 4, 5, 6}
	h := s.Create(PeerHandle{}, mac)

	ctx, ok := s.LookupByMAC(mac)
	if !ok || ctx.Handle != h {
		t.Fatalf("LookupByMAC failed: ok=%v ctx=%+v", ok, ctx)
	}

	other := [6]byte{9, 9, 9, 9, 9, 9}
	if _, ok := s.LookupByMAC(other); ok {
		t.Fatal("expected no match for unregistered MAC")
	}
}

func TestNeighborStore_RemoveAll(t *testing.T) {
	s := NewNeighborStore()
	s.Create(PeerHandle{}, [6]byte{1})
	s.Create(PeerHandle{}, [6]byte{2})
	if s.Count() != 2 {
		t.Fatalf("count = %d", s.Count())
	}
	s.RemoveAll()
	if s.Count() != 0 {
		t.Fatalf("count = %d after RemoveAll", s.Count())
	}
	if len(s.All()) != 0 {
		t.Fatal("expected no live neighbors")
	}
}

func TestNeighborStore_DoubleRemoveIsNoOp(t *testing.T) {
	s := NewNeighborStore()
	h := s.Create(PeerHandle{}, [6]byte{1})
	s.Remove(h)
	s.Remove(h) // must not panic or corrupt free-list
	if s.Count() != 0 {
		t.Fatalf("count = %d", s.Count())
	}
}
