package dlep

import "errors"

// ErrHandleStale means a handle's generation no longer matches the
// slot's occupant — the context it once named has been deallocated and
// the slot may since have been reused.
var ErrHandleStale = errors.New("dlep: stale handle")

// ErrStoreFull means a bounded arena declined to grow further; dlep's
// arenas are unbounded in practice (peer count is effectively 1, see
// spec.md §9's single-peer open question; neighbor count is bounded only
// by memory) so this indicates a caller error, not a runtime condition.
var ErrStoreFull = errors.New("dlep: store full")

type peerSlot struct {
	generation uint32
	occupied   bool
	ctx        *PeerContext
}

// PeerStore is an arena owning every peer context, replacing the
// original linked-list peer list per spec.md §9's re-architecture note.
// Slots are reused after Remove; a stale handle into a reused slot fails
// Lookup rather than aliasing the new occupant, because Lookup compares
// the handle's generation against the slot's current generation.
type PeerStore struct {
	slots []peerSlot
	free  []uint32
}

// NewPeerStore returns an empty peer arena.
func NewPeerStore() *PeerStore {
	return &PeerStore{}
}

// Create allocates a new peer context and returns its stable handle.
func (s *PeerStore) Create(timers TimerConfig, localType string) PeerHandle {
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[idx].generation++
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, peerSlot{generation: 1})
	}
	slot := &s.slots[idx]
	slot.occupied = true
	handle := PeerHandle{Index: idx, Generation: slot.generation}
	slot.ctx = NewPeerContext(handle, timers, localType)
	return handle
}

// Lookup returns the peer context for handle, or false if the handle is
// stale or out of range.
func (s *PeerStore) Lookup(h PeerHandle) (*PeerContext, bool) {
	if int(h.Index) >= len(s.slots) {
		return nil, false
	}
	slot := &s.slots[h.Index]
	if !slot.occupied || slot.generation != h.Generation {
		return nil, false
	}
	return slot.ctx, true
}

// Remove deallocates the peer at handle, freeing its slot for reuse.
func (s *PeerStore) Remove(h PeerHandle) {
	if int(h.Index) >= len(s.slots) {
		return
	}
	slot := &s.slots[h.Index]
	if !slot.occupied || slot.generation != h.Generation {
		return
	}
	slot.occupied = false
	slot.ctx = nil
	s.free = append(s.free, h.Index)
}

// Count returns the number of live peer contexts.
func (s *PeerStore) Count() int {
	n := 0
	for i := range s.slots {
		if s.slots[i].occupied {
			n++
		}
	}
	return n
}

// All returns every live peer context. Order is not meaningful; it
// exists for the CLI's "show peer all".
func (s *PeerStore) All() []*PeerContext {
	out := make([]*PeerContext, 0, len(s.slots))
	for i := range s.slots {
		if s.slots[i].occupied {
			out = append(out, s.slots[i].ctx)
		}
	}
	return out
}

type neighborSlot struct {
	generation uint32
	occupied   bool
	ctx        *NeighborContext
}

// NeighborStore is a per-peer arena owning every neighbor context under
// that peer, mirroring PeerStore's handle-stability scheme.
type NeighborStore struct {
	slots []neighborSlot
	free  []uint32
}

// NewNeighborStore returns an empty neighbor arena.
func NewNeighborStore() *NeighborStore {
	return &NeighborStore{}
}

// Create allocates a new neighbor context and returns its stable handle.
func (s *NeighborStore) Create(peer PeerHandle, mac [6]byte) NeighborHandle {
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[idx].generation++
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, neighborSlot{generation: 1})
	}
	slot := &s.slots[idx]
	slot.occupied = true
	handle := NeighborHandle{Index: idx, Generation: slot.generation}
	slot.ctx = NewNeighborContext(handle, peer, mac)
	return handle
}

// Lookup returns the neighbor context for handle, or false if stale.
func (s *NeighborStore) Lookup(h NeighborHandle) (*NeighborContext, bool) {
	if int(h.Index) >= len(s.slots) {
		return nil, false
	}
	slot := &s.slots[h.Index]
	if !slot.occupied || slot.generation != h.Generation {
		return nil, false
	}
	return slot.ctx, true
}

// LookupByMAC performs the linear MAC scan the CLI and dispatcher need
// (spec.md's neighbor CLI commands address neighbors by MAC, not
// handle). MAC is unique per peer per spec.md §3's invariant, so at
// most one live neighbor matches.
func (s *NeighborStore) LookupByMAC(mac [6]byte) (*NeighborContext, bool) {
	for i := range s.slots {
		if s.slots[i].occupied && s.slots[i].ctx.MAC == mac {
			return s.slots[i].ctx, true
		}
	}
	return nil, false
}

// Remove deallocates the neighbor at handle.
func (s *NeighborStore) Remove(h NeighborHandle) {
	if int(h.Index) >= len(s.slots) {
		return
	}
	slot := &s.slots[h.Index]
	if !slot.occupied || slot.generation != h.Generation {
		return
	}
	slot.occupied = false
	slot.ctx = nil
	s.free = append(s.free, h.Index)
}

// RemoveAll deallocates every neighbor, used when a peer session tears
// down (spec.md §4.3's "deallocate all neighbors" action).
func (s *NeighborStore) RemoveAll() {
	for i := range s.slots {
		s.slots[i].occupied = false
		s.slots[i].ctx = nil
	}
	s.free = s.free[:0]
	for i := range s.slots {
		s.free = append(s.free, uint32(i))
	}
}

// All returns every live neighbor context, for "show neighbor all".
func (s *NeighborStore) All() []*NeighborContext {
	out := make([]*NeighborContext, 0, len(s.slots))
	for i := range s.slots {
		if s.slots[i].occupied {
			out = append(out, s.slots[i].ctx)
		}
	}
	return out
}

// Count returns the number of live neighbor contexts.
func (s *NeighborStore) Count() int {
	n := 0
	for i := range s.slots {
		if s.slots[i].occupied {
			n++
		}
	}
	return n
}
