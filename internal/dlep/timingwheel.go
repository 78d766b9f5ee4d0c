package dlep

// WheelBuckets is the hashed timing wheel's fixed bucket count (spec.md
// §4.5, B=512).
const WheelBuckets = 512

// WheelResolutionMS is the duration, in milliseconds, one external tick
// advances the wheel by (spec.md §4.5, R=100ms).
const WheelResolutionMS = 100

// TimerCell is one guard timer's wheel bookkeeping, embedded directly in
// the owning PeerContext or NeighborContext rather than heap-allocated
// separately (spec.md §3). A cell is armed by at most one bucket at a
// time; Wheel.Start and Wheel.Stop are the only ways to move it between
// "unarmed" and a bucket's doubly linked list.
type TimerCell struct {
	armed              bool
	bucket             int
	rotationsRemaining uint32
	intervalMS         uint32
	callback           func()
	prev, next         *TimerCell
}

// Armed reports whether the cell currently has a pending firing.
func (c *TimerCell) Armed() bool { return c.armed }

// Wheel is the hashed timing wheel driving every guard timer in the
// system: peer offer/heartbeat/term-ack, neighbor init-ack/update-ack/
// update-interval/term-ack (spec.md §4.5). Firing is synchronous with
// Tick, serialized on the caller's goroutine — in practice the single
// dispatch-loop goroutine (spec.md §5), so expiry callbacks never race
// protocol state.
//
// No dependency in the retrieved example pack implements a hashed
// timing wheel; this is built directly from spec.md §4.5's algorithm
// description.
type Wheel struct {
	buckets [WheelBuckets]*TimerCell
	current int
}

// NewWheel returns an empty wheel with its current slot at zero.
func NewWheel() *Wheel {
	return &Wheel{}
}

// Start arms cell to fire once after initialMS, and then (if
// intervalMS > 0) periodically every intervalMS thereafter, invoking
// callback synchronously with the Tick that causes it to fire. Starting
// an already-armed cell first stops it.
func (w *Wheel) Start(cell *TimerCell, initialMS uint32, intervalMS uint32, callback func()) {
	if cell.armed {
		w.Stop(cell)
	}
	cell.intervalMS = intervalMS
	cell.callback = callback
	w.arm(cell, initialMS)
}

func (w *Wheel) arm(cell *TimerCell, delayMS uint32) {
	slots := delayMS / WheelResolutionMS
	bucket := (w.current + int(slots)) % WheelBuckets
	rotations := slots / WheelBuckets

	cell.armed = true
	cell.bucket = bucket
	cell.rotationsRemaining = rotations

	head := w.buckets[bucket]
	cell.next = head
	cell.prev = nil
	if head != nil {
		head.prev = cell
	}
	w.buckets[bucket] = cell
}

// Stop disarms cell if armed; a no-op otherwise, so callers may call
// Stop unconditionally as part of a transition's cleanup actions.
func (w *Wheel) Stop(cell *TimerCell) {
	if !cell.armed {
		return
	}
	if cell.prev != nil {
		cell.prev.next = cell.next
	} else {
		w.buckets[cell.bucket] = cell.next
	}
	if cell.next != nil {
		cell.next.prev = cell.prev
	}
	cell.armed = false
	cell.prev = nil
	cell.next = nil
}

// Tick advances the wheel by one resolution period (WheelResolutionMS)
// and fires every cell in the new current bucket whose rotation count
// has reached zero, decrementing the rest. Firing order within a bucket
// is insertion order reversed (most-recently-armed first); spec.md
// §4.5 does not mandate an order among co-bucketed timers.
func (w *Wheel) Tick() {
	w.current = (w.current + 1) % WheelBuckets

	cell := w.buckets[w.current]
	for cell != nil {
		nextCell := cell.next
		if cell.rotationsRemaining == 0 {
			w.Stop(cell)
			cb := cell.callback
			interval := cell.intervalMS
			if cb != nil {
				cb()
			}
			if interval > 0 {
				w.arm(cell, interval)
				cell.callback = cb
				cell.intervalMS = interval
			}
		} else {
			cell.rotationsRemaining--
		}
		cell = nextCell
	}
}

// CurrentSlot returns the wheel's current bucket index, exposed for the
// "show system timer" CLI command and the timer_wheel_slot metric.
func (w *Wheel) CurrentSlot() int { return w.current }
