package dlep

import "time"

// historyCapacity bounds the FSM transition ring buffer each PeerContext
// and NeighborContext carries, per SPEC_FULL.md §12.2: the CLI's
// "fsm_history" commands need a bounded look-back, not an unbounded log.
const historyCapacity = 32

// TransitionEntry is one recorded (event, old state, new state) tuple,
// timestamped when appended.
type TransitionEntry struct {
	Event    string
	OldState string
	NewState string
	At       time.Time
}

// TransitionHistory is a fixed-capacity ring buffer of TransitionEntry,
// embedded directly in PeerContext and NeighborContext rather than
// allocated separately, consistent with spec.md §3's "timer cells
// embedded not separately allocated" ownership note.
type TransitionHistory struct {
	entries [historyCapacity]TransitionEntry
	next    int
	count   int
}

// Append records one transition, overwriting the oldest entry once the
// buffer is full.
func (h *TransitionHistory) Append(event, oldState, newState string) {
	h.entries[h.next] = TransitionEntry{Event: event, OldState: oldState, NewState: newState, At: time.Now()}
	h.next = (h.next + 1) % historyCapacity
	if h.count < historyCapacity {
		h.count++
	}
}

// Entries returns recorded transitions oldest-first.
func (h *TransitionHistory) Entries() []TransitionEntry {
	out := make([]TransitionEntry, 0, h.count)
	start := h.next - h.count
	if start < 0 {
		start += historyCapacity
	}
	for i := 0; i < h.count; i++ {
		out = append(out, h.entries[(start+i)%historyCapacity])
	}
	return out
}
